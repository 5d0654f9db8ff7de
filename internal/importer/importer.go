// Package importer validates and loads spreadsheet batches of users and
// locations.
package importer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

// Row-level messages shown to administrators.
const (
	MsgEmptyRow          = "Ligne vide"
	MsgEmailExists       = "Email déjà existant"
	MsgEmailDuplicate    = "Email en doublon dans le fichier"
	MsgLocationExists    = "Site déjà existant"
	MsgLocationDuplicate = "Site en doublon dans le fichier"
	MsgLocationFailed    = "Impossible de créer le site"
	MsgCreateFailed      = "Impossible de créer l'utilisateur"
	MsgManagerNotFound   = "Manager introuvable : "
	MsgManagerSelf       = "Un collaborateur ne peut pas être son propre manager"
	MsgManagerFailed     = "Impossible de rattacher le manager"
)

// Store is the persistence the importer needs. Email and name maps are keyed
// by their normalized form (utils.NormalizeEmail, utils.Fold).
type Store interface {
	ProfileIDsByEmail(ctx context.Context, emails []string) (map[string]string, error)
	LocationIDsByName(ctx context.Context) (map[string]string, error)
	CreateLocation(ctx context.Context, l *models.Location) error
	CreateUser(ctx context.Context, p *models.Profile, a *models.AuthAccount) error
	SetManager(ctx context.Context, profileID, managerID string) error
}

type Options struct {
	DryRun bool
}

type Result struct {
	Summary models.ImportSummary     `json:"summary"`
	Results []models.ImportRowResult `json:"results"`
	// Created lists profiles inserted by this batch, for follow-up notifications.
	Created []models.Profile `json:"-"`
}

type Importer struct {
	store Store
	now   func() time.Time
	idGen func() string
}

func New(store Store) *Importer {
	return &Importer{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: uuid.NewString,
	}
}

type pendingManager struct {
	row       int
	profileID string
	email     string
	manager   string
}

// Users validates and creates user rows. A store failure while loading the
// reference data aborts the batch; everything after that is reported per row.
func (im *Importer) Users(ctx context.Context, rows []map[string]any, opts Options) (*Result, error) {
	res := &Result{Results: make([]models.ImportRowResult, len(rows))}

	canon := make([]map[string]string, len(rows))
	emails := make([]string, 0, len(rows))
	for i, raw := range rows {
		canon[i] = Canonicalize(models.ImportUsers, raw)
		if e := utils.NormalizeEmail(canon[i][FieldEmail]); e != "" {
			emails = append(emails, e)
		}
	}

	existing, err := im.store.ProfileIDsByEmail(ctx, emails)
	if err != nil {
		return nil, err
	}
	locations, err := im.store.LocationIDsByName(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	created := map[string]string{}
	var pending []pendingManager

	for i, fields := range canon {
		out := &res.Results[i]
		out.RowIndex = i

		if len(fields) == 0 {
			out.Error = MsgEmptyRow
			continue
		}
		row := NewUserRow(fields)
		out.Key = row.Email
		if msg := Check(row); msg != "" {
			out.Error = msg
			continue
		}

		email := utils.NormalizeEmail(row.Email)
		out.Key = email
		if _, ok := existing[email]; ok {
			out.Error = MsgEmailExists
			continue
		}
		if seen[email] {
			out.Error = MsgEmailDuplicate
			continue
		}
		seen[email] = true

		var locationID *string
		if row.LocationName != "" {
			id, err := im.ensureLocation(ctx, locations, row.LocationName, opts)
			if err != nil {
				out.Error = MsgLocationFailed
				continue
			}
			if id != "" {
				locationID = &id
			}
		}

		now := im.now()
		p := models.Profile{
			ID:         im.idGen(),
			Email:      email,
			FirstName:  row.FirstName,
			LastName:   row.LastName,
			Role:       row.RoleValue(),
			JobTitle:   row.JobTitle,
			LocationID: locationID,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if !opts.DryRun {
			acct := &models.AuthAccount{ProfileID: p.ID, Email: email, CreatedAt: now}
			if err := im.store.CreateUser(ctx, &p, acct); err != nil {
				if utils.IsCode(err, utils.CodeConflict) {
					out.Error = MsgEmailExists
				} else {
					out.Error = MsgCreateFailed
				}
				continue
			}
			out.ResourceID = p.ID
			res.Created = append(res.Created, p)
		}

		out.Success = true
		created[email] = p.ID
		if row.ManagerEmail != "" {
			pending = append(pending, pendingManager{
				row:       i,
				profileID: p.ID,
				email:     email,
				manager:   utils.NormalizeEmail(row.ManagerEmail),
			})
		}
	}

	// Managers may appear later in the file than their reports, so they are
	// resolved only once every row has been created.
	if len(pending) > 0 {
		im.resolveManagers(ctx, res, pending, created, existing, opts)
	}

	res.Summary = summarize(res.Results)
	return res, nil
}

func (im *Importer) resolveManagers(ctx context.Context, res *Result, pending []pendingManager, created, existing map[string]string, opts Options) {
	var lookup []string
	for _, pm := range pending {
		if _, ok := created[pm.manager]; ok {
			continue
		}
		if _, ok := existing[pm.manager]; ok {
			continue
		}
		lookup = append(lookup, pm.manager)
	}
	found := map[string]string{}
	if len(lookup) > 0 {
		// a failed lookup only downgrades rows to warnings
		if m, err := im.store.ProfileIDsByEmail(ctx, lookup); err == nil {
			found = m
		}
	}

	for _, pm := range pending {
		out := &res.Results[pm.row]
		if pm.manager == pm.email {
			out.Warning = MsgManagerSelf
			continue
		}
		managerID, ok := created[pm.manager]
		if !ok {
			managerID, ok = existing[pm.manager]
		}
		if !ok {
			managerID, ok = found[pm.manager]
		}
		if !ok {
			out.Warning = MsgManagerNotFound + pm.manager
			continue
		}
		if opts.DryRun {
			continue
		}
		if err := im.store.SetManager(ctx, pm.profileID, managerID); err != nil {
			out.Warning = MsgManagerFailed
		}
	}
}

func (im *Importer) ensureLocation(ctx context.Context, locations map[string]string, name string, opts Options) (string, error) {
	key := utils.Fold(name)
	if id, ok := locations[key]; ok {
		return id, nil
	}
	if opts.DryRun {
		locations[key] = ""
		return "", nil
	}
	l := &models.Location{ID: im.idGen(), Name: name, CreatedAt: im.now()}
	if err := im.store.CreateLocation(ctx, l); err != nil {
		return "", err
	}
	locations[key] = l.ID
	return l.ID, nil
}

// Locations validates and creates location rows.
func (im *Importer) Locations(ctx context.Context, rows []map[string]any, opts Options) (*Result, error) {
	res := &Result{Results: make([]models.ImportRowResult, len(rows))}

	existing, err := im.store.LocationIDsByName(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}

	for i, raw := range rows {
		out := &res.Results[i]
		out.RowIndex = i

		fields := Canonicalize(models.ImportLocations, raw)
		if len(fields) == 0 {
			out.Error = MsgEmptyRow
			continue
		}
		row := NewLocationRow(fields)
		out.Key = row.Name
		if msg := Check(row); msg != "" {
			out.Error = msg
			continue
		}

		key := utils.Fold(row.Name)
		if _, ok := existing[key]; ok {
			out.Error = MsgLocationExists
			continue
		}
		if seen[key] {
			out.Error = MsgLocationDuplicate
			continue
		}
		seen[key] = true

		if !opts.DryRun {
			l := &models.Location{ID: im.idGen(), Name: row.Name, Address: row.Address, CreatedAt: im.now()}
			if err := im.store.CreateLocation(ctx, l); err != nil {
				if utils.IsCode(err, utils.CodeConflict) {
					out.Error = MsgLocationExists
				} else {
					out.Error = MsgLocationFailed
				}
				continue
			}
			out.ResourceID = l.ID
		}
		out.Success = true
	}

	res.Summary = summarize(res.Results)
	return res, nil
}

func summarize(results []models.ImportRowResult) models.ImportSummary {
	s := models.ImportSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Created++
		} else {
			s.Failed++
		}
	}
	return s
}
