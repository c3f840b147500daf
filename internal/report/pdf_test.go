package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcnich/App-UAT-Tool/internal/database"
)

func TestFilename(t *testing.T) {
	r := &database.Review{AppName: "Acme Shipping Pro", AppID: "acme-42"}
	assert.Equal(t, "UAT_Report_Acme_Shipping_Pro_acme-42.pdf", Filename(r))
}

func TestResultDisplay(t *testing.T) {
	pass := database.ResultPass
	na := database.ResultNA

	assert.Equal(t, "—", resultDisplay(nil))
	assert.Equal(t, "Pass", resultDisplay(&pass))
	assert.Equal(t, "N/A", resultDisplay(&na))
}
