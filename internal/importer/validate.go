package importer

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yoockh/skillradar/internal/models"
)

type UserRow struct {
	FirstName    string `validate:"required"`
	LastName     string `validate:"required"`
	Email        string `validate:"required,email"`
	Role         string `validate:"required,oneof=super_admin skill_master manager worker"`
	JobTitle     string `validate:"max=200"`
	LocationName string `validate:"max=200"`
	ManagerEmail string `validate:"omitempty,email"`
}

type LocationRow struct {
	Name    string `validate:"required,max=200"`
	Address string `validate:"max=500"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]map[string]string{
	"FirstName":    {"required": "Prénom requis"},
	"LastName":     {"required": "Nom requis"},
	"Email":        {"required": "Email requis", "email": "Email invalide"},
	"Role":         {"required": "Rôle requis", "oneof": "Rôle invalide"},
	"JobTitle":     {"max": "Intitulé de poste trop long"},
	"LocationName": {"max": "Nom de site trop long"},
	"ManagerEmail": {"email": "Email du manager invalide"},
	"Name":         {"required": "Nom du site requis", "max": "Nom du site trop long"},
	"Address":      {"max": "Adresse trop longue"},
}

// ValidEmail applies the same rule as the email column of a user import.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// NewUserRow builds a row from canonical fields. Role synonyms are resolved
// here; unknown roles are kept verbatim so validation reports them.
func NewUserRow(f map[string]string) UserRow {
	role := f[FieldRole]
	if r, ok := NormalizeRole(role); ok {
		role = string(r)
	}
	return UserRow{
		FirstName:    f[FieldFirstName],
		LastName:     f[FieldLastName],
		Email:        strings.TrimSpace(f[FieldEmail]),
		Role:         role,
		JobTitle:     f[FieldJobTitle],
		LocationName: f[FieldLocation],
		ManagerEmail: strings.TrimSpace(f[FieldManagerEmail]),
	}
}

func NewLocationRow(f map[string]string) LocationRow {
	return LocationRow{Name: f[FieldName], Address: f[FieldAddress]}
}

func (r UserRow) RoleValue() models.Role { return models.Role(r.Role) }

// Check validates a row struct and returns human-readable messages joined by
// "; ", or "" when the row is valid.
func Check(row any) string {
	err := validate.Struct(row)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Ligne invalide"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fieldMessages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = "Champ invalide : " + fe.Field()
		}
		if fe.Field() == "Role" && fe.Tag() == "oneof" {
			msg += " : " + fe.Value().(string)
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
