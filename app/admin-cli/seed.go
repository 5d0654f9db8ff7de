package main

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/services"
	"github.com/yoockh/skillradar/internal/utils"
)

// SeedFile describes a reference taxonomy. Entries are matched by name, so a
// file can be applied repeatedly; existing entries are left untouched.
type SeedFile struct {
	Locations   []SeedLocation   `yaml:"locations"`
	Qualifiers  []SeedQualifier  `yaml:"qualifiers"`
	Modules     []SeedModule     `yaml:"modules"`
	JobProfiles []SeedJobProfile `yaml:"job_profiles"`
}

type SeedLocation struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type SeedQualifier struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Type        string       `yaml:"type"`
	Options     []SeedOption `yaml:"options"`
}

type SeedOption struct {
	Label string  `yaml:"label"`
	Value float64 `yaml:"value"`
}

type SeedModule struct {
	Name         string           `yaml:"name"`
	Description  string           `yaml:"description"`
	Icon         string           `yaml:"icon"`
	Color        string           `yaml:"color"`
	Competencies []SeedCompetency `yaml:"competencies"`
	Children     []SeedModule     `yaml:"children"`
}

type SeedCompetency struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

type SeedJobProfile struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Modules     []SeedModuleLink `yaml:"modules"`
	Qualifiers  []string         `yaml:"qualifiers"`
}

// SeedModuleLink references a module by name. A missing expected score
// falls back to the default expectation.
type SeedModuleLink struct {
	Name     string   `yaml:"name"`
	Expected *float64 `yaml:"expected"`
}

func ReadSeed(r io.Reader) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

type seedStats struct {
	Created int
	Skipped int
}

type seeder struct {
	locations   services.LocationService
	taxonomy    services.TaxonomyService
	qualifiers  services.QualifierService
	jobProfiles services.JobProfileService
	caller      services.Caller

	stats seedStats
}

func (s *seeder) Apply(ctx context.Context, f *SeedFile) (seedStats, error) {
	if err := s.seedLocations(ctx, f.Locations); err != nil {
		return s.stats, err
	}
	qualIDs, err := s.seedQualifiers(ctx, f.Qualifiers)
	if err != nil {
		return s.stats, err
	}
	modIDs, err := s.seedModules(ctx, f.Modules)
	if err != nil {
		return s.stats, err
	}
	return s.stats, s.seedJobProfiles(ctx, f.JobProfiles, modIDs, qualIDs)
}

func (s *seeder) seedLocations(ctx context.Context, rows []SeedLocation) error {
	for _, l := range rows {
		_, err := s.locations.Create(ctx, s.caller, l.Name, l.Address)
		switch {
		case utils.IsCode(err, utils.CodeConflict):
			s.stats.Skipped++
		case err != nil:
			return fmt.Errorf("location %q: %w", l.Name, err)
		default:
			s.stats.Created++
		}
	}
	return nil
}

func (s *seeder) seedQualifiers(ctx context.Context, rows []SeedQualifier) (map[string]string, error) {
	existing, err := s.qualifiers.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := map[string]string{}
	for _, q := range existing {
		ids[utils.Fold(q.Name)] = q.ID
	}

	for _, q := range rows {
		if _, ok := ids[utils.Fold(q.Name)]; ok {
			s.stats.Skipped++
			continue
		}
		in := services.QualifierInput{Name: q.Name, Description: q.Description, Type: models.QualifierType(q.Type)}
		for _, o := range q.Options {
			in.Options = append(in.Options, services.OptionInput{Label: o.Label, Value: o.Value})
		}
		created, err := s.qualifiers.Create(ctx, s.caller, in)
		if err != nil {
			return nil, fmt.Errorf("qualifier %q: %w", q.Name, err)
		}
		ids[utils.Fold(q.Name)] = created.ID
		s.stats.Created++
	}
	return ids, nil
}

func (s *seeder) seedModules(ctx context.Context, rows []SeedModule) (map[string]string, error) {
	tree, err := s.taxonomy.ModuleTree(ctx)
	if err != nil {
		return nil, err
	}
	ids := map[string]string{}
	for _, m := range tree {
		ids[utils.Fold(m.Name)] = m.ID
		for _, c := range m.Children {
			ids[utils.Fold(c.Name)] = c.ID
		}
	}

	var walk func(rows []SeedModule, parent *string, order int) error
	walk = func(rows []SeedModule, parent *string, order int) error {
		for i, m := range rows {
			id, ok := ids[utils.Fold(m.Name)]
			if ok {
				s.stats.Skipped++
			} else {
				created, err := s.taxonomy.CreateModule(ctx, s.caller, services.ModuleInput{
					Name:        m.Name,
					Description: m.Description,
					ParentID:    parent,
					Icon:        m.Icon,
					Color:       m.Color,
					SortOrder:   order + i + 1,
				})
				if err != nil {
					return fmt.Errorf("module %q: %w", m.Name, err)
				}
				id = created.ID
				ids[utils.Fold(m.Name)] = id
				s.stats.Created++

				for j, c := range m.Competencies {
					_, err := s.taxonomy.CreateCompetency(ctx, s.caller, services.CompetencyInput{
						ModuleID:    id,
						Name:        c.Name,
						Description: c.Description,
						Keywords:    c.Keywords,
						SortOrder:   j + 1,
					})
					if err != nil {
						return fmt.Errorf("competency %q: %w", c.Name, err)
					}
					s.stats.Created++
				}
			}
			if len(m.Children) > 0 {
				if parent != nil {
					return fmt.Errorf("module %q: only one level of sub-modules is allowed", m.Name)
				}
				pid := id
				if err := walk(m.Children, &pid, (order+i+1)*100); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return ids, walk(rows, nil, 0)
}

func (s *seeder) seedJobProfiles(ctx context.Context, rows []SeedJobProfile, modIDs, qualIDs map[string]string) error {
	existing, err := s.jobProfiles.List(ctx)
	if err != nil {
		return err
	}
	known := map[string]bool{}
	for _, jp := range existing {
		known[utils.Fold(jp.Name)] = true
	}

	for _, row := range rows {
		if known[utils.Fold(row.Name)] {
			s.stats.Skipped++
			continue
		}
		links := make([]services.ModuleLinkInput, 0, len(row.Modules))
		for _, m := range row.Modules {
			id, ok := modIDs[utils.Fold(m.Name)]
			if !ok {
				return fmt.Errorf("job profile %q: unknown module %q", row.Name, m.Name)
			}
			links = append(links, services.ModuleLinkInput{ModuleID: id, ExpectedScore: m.Expected})
		}
		quals := make([]string, 0, len(row.Qualifiers))
		for _, name := range row.Qualifiers {
			id, ok := qualIDs[utils.Fold(name)]
			if !ok {
				return fmt.Errorf("job profile %q: unknown qualifier %q", row.Name, name)
			}
			quals = append(quals, id)
		}

		jp, err := s.jobProfiles.Create(ctx, s.caller, row.Name, row.Description)
		if err != nil {
			return fmt.Errorf("job profile %q: %w", row.Name, err)
		}
		if len(links) > 0 {
			if _, err := s.jobProfiles.SetModules(ctx, s.caller, jp.ID, links); err != nil {
				return fmt.Errorf("job profile %q modules: %w", row.Name, err)
			}
		}
		if len(quals) > 0 {
			if _, err := s.jobProfiles.SetQualifiers(ctx, s.caller, jp.ID, quals); err != nil {
				return fmt.Errorf("job profile %q qualifiers: %w", row.Name, err)
			}
		}
		s.stats.Created++
	}
	return nil
}
