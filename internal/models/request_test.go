package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayStatusRoundTrip(t *testing.T) {
	cases := []struct {
		display string
		paid    bool
	}{
		{DisplayPending, true},
		{DisplayProcessing, true},
		{DisplayUnpaid, false},
		{DisplayReady, true},
		{DisplayDone, true},
		{DisplayChange, true},
	}
	for _, tc := range cases {
		backend := ToBackendStatus(tc.display)
		assert.Equal(t, tc.display, ToDisplayStatus(backend, tc.paid), "display %s", tc.display)
	}
}

func TestDocReadySplitsOnPaymentFlag(t *testing.T) {
	assert.Equal(t, DisplayUnpaid, ToDisplayStatus(RequestStatusDocReady, false))
	assert.Equal(t, DisplayReady, ToDisplayStatus(RequestStatusDocReady, true))
	assert.Equal(t, RequestStatusDocReady, ToBackendStatus(DisplayUnpaid))
	assert.Equal(t, RequestStatusDocReady, ToBackendStatus(DisplayReady))
}

func TestUnknownStatusPassesThrough(t *testing.T) {
	assert.Equal(t, "ARCHIVED", ToDisplayStatus(RequestStatus("ARCHIVED"), false))
	assert.Equal(t, RequestStatus("Archived"), ToBackendStatus("Archived"))
	// Round-trip idempotence for the fallback case.
	assert.Equal(t, "ARCHIVED", ToDisplayStatus(ToBackendStatus("ARCHIVED"), true))
}

func TestValidContactMethod(t *testing.T) {
	for _, m := range []ContactMethod{ContactEmail, ContactSMS, ContactWhatsApp, ContactTelegram} {
		assert.True(t, ValidContactMethod(m))
	}
	assert.False(t, ValidContactMethod("Carrier Pigeon"))
	assert.False(t, ValidContactMethod(""))
}

func TestRecomputeTotalExcludesCustomDocuments(t *testing.T) {
	state := NewWizardState("student-1")
	state.SelectedDocs = []SelectedDocument{
		{DocID: "doc-1", DocName: "Transcript", Cost: 100, Quantity: 2},
		{DocID: "custom-1", DocName: "Old Enrollment Form", IsCustom: true, Quantity: 1},
	}
	state.RecomputeTotal()
	assert.Equal(t, 200.0, state.TotalPrice)
}

func TestRequiresPayment(t *testing.T) {
	state := NewWizardState("student-1")
	state.SelectedDocs = []SelectedDocument{{DocID: "doc-1", DocName: "Transcript", Quantity: 1}}
	assert.False(t, state.RequiresPayment())

	state.SelectedDocs = append(state.SelectedDocs, SelectedDocument{
		DocID: "doc-2", DocName: "Diploma", Quantity: 1, RequiresPaymentFirst: true,
	})
	assert.True(t, state.RequiresPayment())
}
