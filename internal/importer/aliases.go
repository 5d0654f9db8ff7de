package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

// Canonical user columns.
const (
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldEmail        = "email"
	FieldRole         = "role"
	FieldJobTitle     = "job_title"
	FieldLocation     = "location_name"
	FieldManagerEmail = "manager_email"
)

// Canonical location columns.
const (
	FieldName    = "name"
	FieldAddress = "address"
)

// Keys are folded with utils.FoldKey, so accents, case and separators do not matter.
var userHeaders = map[string]string{
	"first_name": FieldFirstName,
	"firstname":  FieldFirstName,
	"prenom":     FieldFirstName,
	"given_name": FieldFirstName,

	"last_name":      FieldLastName,
	"lastname":       FieldLastName,
	"nom":            FieldLastName,
	"nom_de_famille": FieldLastName,
	"surname":        FieldLastName,
	"family_name":    FieldLastName,

	"email":          FieldEmail,
	"e_mail":         FieldEmail,
	"mail":           FieldEmail,
	"courriel":       FieldEmail,
	"adresse_email":  FieldEmail,
	"adresse_e_mail": FieldEmail,
	"email_address":  FieldEmail,

	"role":   FieldRole,
	"profil": FieldRole,
	"type":   FieldRole,

	"job_title":         FieldJobTitle,
	"jobtitle":          FieldJobTitle,
	"title":             FieldJobTitle,
	"poste":             FieldJobTitle,
	"fonction":          FieldJobTitle,
	"intitule_de_poste": FieldJobTitle,
	"intitule_du_poste": FieldJobTitle,

	"location":      FieldLocation,
	"location_name": FieldLocation,
	"site":          FieldLocation,
	"lieu":          FieldLocation,
	"etablissement": FieldLocation,
	"agence":        FieldLocation,

	"manager_email":        FieldManagerEmail,
	"manager":              FieldManagerEmail,
	"email_manager":        FieldManagerEmail,
	"email_du_manager":     FieldManagerEmail,
	"responsable":          FieldManagerEmail,
	"email_responsable":    FieldManagerEmail,
	"email_du_responsable": FieldManagerEmail,
}

var locationHeaders = map[string]string{
	"name":        FieldName,
	"nom":         FieldName,
	"nom_du_site": FieldName,
	"site":        FieldName,
	"lieu":        FieldName,
	"location":    FieldName,

	"address":  FieldAddress,
	"adresse":  FieldAddress,
	"addresse": FieldAddress,
}

var roleAliases = map[string]models.Role{
	"super_admin":    models.RoleSuperAdmin,
	"superadmin":     models.RoleSuperAdmin,
	"admin":          models.RoleSuperAdmin,
	"administrateur": models.RoleSuperAdmin,
	"administrator":  models.RoleSuperAdmin,

	"skill_master":           models.RoleSkillMaster,
	"skillmaster":            models.RoleSkillMaster,
	"maitre_des_competences": models.RoleSkillMaster,
	"referent":               models.RoleSkillMaster,
	"referent_competences":   models.RoleSkillMaster,
	"expert":                 models.RoleSkillMaster,

	"manager":       models.RoleManager,
	"responsable":   models.RoleManager,
	"evaluateur":    models.RoleManager,
	"evaluator":     models.RoleManager,
	"chef_d_equipe": models.RoleManager,

	"worker":        models.RoleWorker,
	"collaborateur": models.RoleWorker,
	"employe":       models.RoleWorker,
	"employee":      models.RoleWorker,
	"salarie":       models.RoleWorker,
	"operateur":     models.RoleWorker,
	"technicien":    models.RoleWorker,
}

// NormalizeRole maps a role label or synonym onto the closed role set.
func NormalizeRole(s string) (models.Role, bool) {
	r, ok := roleAliases[headerKey(s)]
	return r, ok
}

func headerKey(header string) string {
	return strings.ReplaceAll(utils.FoldKey(header), "'", "_")
}

// CanonicalHeader resolves a raw column header for the given import kind.
func CanonicalHeader(kind models.ImportKind, header string) (string, bool) {
	table := userHeaders
	if kind == models.ImportLocations {
		table = locationHeaders
	}
	f, ok := table[headerKey(header)]
	return f, ok
}

// Canonicalize maps a loosely-typed row onto canonical field names. Unknown
// columns are dropped; values are stringified and trimmed. When several
// non-empty columns map to one field, a header spelling the field name
// itself wins, then the first header in sorted order.
func Canonicalize(kind models.ImportKind, raw map[string]any) map[string]string {
	headers := make([]string, 0, len(raw))
	for k := range raw {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	out := make(map[string]string, len(raw))
	exact := map[string]bool{}
	for _, k := range headers {
		f, ok := CanonicalHeader(kind, k)
		if !ok {
			continue
		}
		s := strings.TrimSpace(stringify(raw[k]))
		if s == "" {
			continue
		}
		isExact := headerKey(k) == f
		if _, taken := out[f]; taken && (exact[f] || !isExact) {
			continue
		}
		out[f] = s
		exact[f] = isExact
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
