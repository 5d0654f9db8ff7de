package services

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/notify"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func ptr[T any](v T) *T { return &v }

var (
	admin   = Caller{ID: "admin", Role: models.RoleSuperAdmin}
	master  = Caller{ID: "master", Role: models.RoleSkillMaster}
	manager = Caller{ID: "mgr", Role: models.RoleManager}
	worker  = Caller{ID: "w1", Role: models.RoleWorker}
)

type stubProfiles struct {
	pgrepo.ProfileRepository
	rows    map[string]*models.Profile
	created []models.AuthAccount
}

func newStubProfiles(ps ...models.Profile) *stubProfiles {
	s := &stubProfiles{rows: map[string]*models.Profile{}}
	for i := range ps {
		p := ps[i]
		s.rows[p.ID] = &p
	}
	return s
}

func (s *stubProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	p, ok := s.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	for _, p := range s.rows {
		if p.Email == utils.NormalizeEmail(email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s *stubProfiles) List(_ context.Context, f pgrepo.ProfileFilter) ([]models.Profile, int64, error) {
	var out []models.Profile
	for _, p := range s.rows {
		if f.ManagerID != "" && (p.ManagerID == nil || *p.ManagerID != f.ManagerID) {
			continue
		}
		if f.Role != "" && p.Role != f.Role {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *stubProfiles) IDsByEmail(_ context.Context, emails []string) (map[string]string, error) {
	out := map[string]string{}
	for _, e := range emails {
		for _, p := range s.rows {
			if p.Email == utils.NormalizeEmail(e) {
				out[p.Email] = p.ID
			}
		}
	}
	return out, nil
}

func (s *stubProfiles) CreateWithAccount(_ context.Context, p *models.Profile, a *models.AuthAccount) error {
	for _, existing := range s.rows {
		if existing.Email == p.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *p
	s.rows[p.ID] = &cp
	s.created = append(s.created, *a)
	return nil
}

func (s *stubProfiles) Update(_ context.Context, id string, fields map[string]any) error {
	p, ok := s.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	str := func(v any) *string {
		if v == nil {
			return nil
		}
		x := v.(string)
		return &x
	}
	for k, v := range fields {
		switch k {
		case "role":
			p.Role = v.(models.Role)
		case "is_active":
			p.IsActive = v.(bool)
		case "manager_id":
			p.ManagerID = str(v)
		case "location_id":
			p.LocationID = str(v)
		case "job_profile_id":
			p.JobProfileID = str(v)
		case "avatar_url":
			p.AvatarURL = v.(string)
		case "first_name":
			p.FirstName = v.(string)
		case "last_name":
			p.LastName = v.(string)
		case "job_title":
			p.JobTitle = v.(string)
		}
	}
	return nil
}

type stubAccounts struct {
	pgrepo.AccountRepository
	rows map[string]*models.AuthAccount
}

func (s *stubAccounts) GetByEmail(_ context.Context, email string) (*models.AuthAccount, error) {
	for _, a := range s.rows {
		if a.Email == utils.NormalizeEmail(email) {
			return a, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s *stubAccounts) GetByResetToken(_ context.Context, hash string) (*models.AuthAccount, error) {
	for _, a := range s.rows {
		if hash != "" && a.ResetTokenHash == hash {
			return a, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s *stubAccounts) SetResetToken(_ context.Context, id, hash string, exp time.Time) error {
	a := s.rows[id]
	a.ResetTokenHash = hash
	a.ResetExpiresAt = &exp
	return nil
}

func (s *stubAccounts) SetPassword(_ context.Context, id, hash string) error {
	a := s.rows[id]
	a.PasswordHash = hash
	a.ResetTokenHash = ""
	a.ResetExpiresAt = nil
	return nil
}

func (s *stubAccounts) TouchSignIn(_ context.Context, id string, at time.Time) error {
	s.rows[id].LastSignInAt = &at
	return nil
}

type stubMailer struct {
	jobs []notify.MailJob
	err  error
}

func (m *stubMailer) Send(_ context.Context, job notify.MailJob) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type stubTaxonomy struct {
	pgrepo.TaxonomyRepository
	modules      []models.Module
	competencies []models.Competency
}

func (s *stubTaxonomy) ListModules(context.Context) ([]models.Module, error) { return s.modules, nil }

func (s *stubTaxonomy) GetModule(_ context.Context, id string) (*models.Module, error) {
	for _, m := range s.modules {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s *stubTaxonomy) CountChildren(_ context.Context, id string) (int64, error) {
	var n int64
	for _, m := range s.modules {
		if m.ParentID != nil && *m.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (s *stubTaxonomy) CreateModule(_ context.Context, m *models.Module) error {
	s.modules = append(s.modules, *m)
	return nil
}

func (s *stubTaxonomy) GetCompetency(_ context.Context, id string) (*models.Competency, error) {
	for _, c := range s.competencies {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s *stubTaxonomy) CompetenciesByID(_ context.Context, ids []string) ([]models.Competency, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Competency
	for _, c := range s.competencies {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubTaxonomy) CompetenciesInModules(_ context.Context, ids []string) ([]models.Competency, error) {
	if ids == nil {
		return s.competencies, nil
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Competency
	for _, c := range s.competencies {
		if want[c.ModuleID] {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubQualifiers struct {
	pgrepo.QualifierRepository
	rows []models.Qualifier
}

func (s *stubQualifiers) List(context.Context) ([]models.Qualifier, error) { return s.rows, nil }

type stubJobProfiles struct {
	pgrepo.JobProfileRepository
	rows     map[string]*models.JobProfile
	assigned []models.WorkerJobProfile
}

func (s *stubJobProfiles) Get(_ context.Context, id string) (*models.JobProfile, error) {
	jp, ok := s.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return jp, nil
}

func (s *stubJobProfiles) Assign(_ context.Context, a *models.WorkerJobProfile) error {
	for _, x := range s.assigned {
		if x.WorkerID == a.WorkerID && x.JobProfileID == a.JobProfileID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.assigned = append(s.assigned, *a)
	return nil
}

func (s *stubJobProfiles) List(context.Context) ([]models.JobProfile, error) {
	out := make([]models.JobProfile, 0, len(s.rows))
	for _, jp := range s.rows {
		out = append(out, *jp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubJobProfiles) Create(_ context.Context, jp *models.JobProfile) error {
	for _, x := range s.rows {
		if utils.Fold(x.Name) == utils.Fold(jp.Name) {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *jp
	s.rows[jp.ID] = &cp
	return nil
}

func (s *stubJobProfiles) Delete(_ context.Context, id string) error {
	if _, ok := s.rows[id]; !ok {
		return utils.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *stubJobProfiles) ReplaceModules(_ context.Context, id string, links []models.JobProfileModule) error {
	jp, ok := s.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	jp.Modules = links
	return nil
}

func (s *stubJobProfiles) ReplaceQualifiers(_ context.Context, id string, links []models.JobProfileQualifier) error {
	jp, ok := s.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	jp.Qualifiers = links
	return nil
}

func (s *stubJobProfiles) ReplaceCompetencies(_ context.Context, id string, links []models.JobProfileCompetency) error {
	jp, ok := s.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	jp.Competencies = links
	return nil
}

func (s *stubJobProfiles) Unassign(_ context.Context, workerID, jobProfileID string) error {
	for i, a := range s.assigned {
		if a.WorkerID == workerID && a.JobProfileID == jobProfileID {
			s.assigned = append(s.assigned[:i], s.assigned[i+1:]...)
			return nil
		}
	}
	return utils.ErrNotFound
}

func (s *stubJobProfiles) Assignments(_ context.Context, workerID string) ([]models.WorkerJobProfile, error) {
	var out []models.WorkerJobProfile
	for _, a := range s.assigned {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubEvaluations struct {
	pgrepo.EvaluationRepository
	rows     map[string]*models.Evaluation
	replaced []*models.EvaluationResult
	// beforeWrite runs ahead of ReplaceResult to simulate concurrent changes
	beforeWrite func(e *models.Evaluation)
}

func newStubEvaluations(es ...models.Evaluation) *stubEvaluations {
	s := &stubEvaluations{rows: map[string]*models.Evaluation{}}
	for i := range es {
		e := es[i]
		s.rows[e.ID] = &e
	}
	return s
}

func (s *stubEvaluations) Create(_ context.Context, e *models.Evaluation) error {
	cp := *e
	s.rows[e.ID] = &cp
	return nil
}

func (s *stubEvaluations) Get(_ context.Context, id string) (*models.Evaluation, error) {
	e, ok := s.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *e
	cp.Results = nil
	return &cp, nil
}

func (s *stubEvaluations) GetWithResults(_ context.Context, id string) (*models.Evaluation, error) {
	e, ok := s.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *stubEvaluations) FindContinuous(_ context.Context, workerID string, jp *string) (*models.Evaluation, error) {
	for _, e := range s.rows {
		if e.IsContinuous && e.WorkerID == workerID && deref(e.JobProfileID) == deref(jp) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s *stubEvaluations) ReplaceResult(_ context.Context, res *models.EvaluationResult, status models.EvaluationStatus) error {
	e := s.rows[res.EvaluationID]
	if s.beforeWrite != nil {
		s.beforeWrite(e)
	}
	if e.Status == models.StatusCompleted {
		return utils.ErrConflict
	}
	kept := e.Results[:0]
	for _, r := range e.Results {
		if r.CompetencyID != res.CompetencyID {
			kept = append(kept, r)
		}
	}
	e.Results = append(kept, *res)
	e.Status = status
	s.replaced = append(s.replaced, res)
	return nil
}

func (s *stubEvaluations) Complete(_ context.Context, id string, at time.Time) error {
	e := s.rows[id]
	e.Status = models.StatusCompleted
	e.CompletedAt = &at
	return nil
}

type stubCache struct {
	data     map[string][]byte
	counters map[string]int64
	deleted  []string
}

func newStubCache() *stubCache {
	return &stubCache{data: map[string][]byte{}, counters: map[string]int64{}}
}

func (c *stubCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *stubCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *stubCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *stubCache) Incr(_ context.Context, key string) (int64, error) {
	c.counters[key]++
	return c.counters[key], nil
}

func (c *stubCache) Counter(_ context.Context, key string) (int64, error) {
	return c.counters[key], nil
}

type recordedEvent struct{ evaluationID, actorID string }

type stubEvents struct {
	calls []recordedEvent
}

func (s *stubEvents) EvaluationSaved(_ context.Context, evaluationID, actorID string) error {
	s.calls = append(s.calls, recordedEvent{evaluationID, actorID})
	return nil
}
