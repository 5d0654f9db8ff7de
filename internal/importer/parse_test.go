package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSVSemicolon(t *testing.T) {
	in := "\ufeffPrénom;Nom;Email;Rôle\nJean;Dupont;jean.dupont@email.com;collaborateur\n;;;\nAnne;Martin;anne@corp.fr;manager\n"
	rows, err := Parse("users.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jean", rows[0]["Prénom"])
	assert.Equal(t, "manager", rows[1]["Rôle"])
}

func TestParseCSVComma(t *testing.T) {
	in := "first_name,last_name,email,role\nJean,Dupont,jean.dupont@email.com,worker\n"
	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "jean.dupont@email.com", rows[0]["email"])
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Prénom", "Nom", "Email", "Rôle"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Jean", "Dupont", "jean.dupont@email.com", "worker"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := Parse("Users.XLSX", buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dupont", rows[0]["Nom"])
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse("users.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}
