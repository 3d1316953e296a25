package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/models"
)

func TestComposerLocked(t *testing.T) {
	thread := &models.Thread{OwnerID: "owner", SenderID: "buyer"}

	tests := []struct {
		name   string
		status string
		viewer string
		locked bool
	}{
		// İstek sahibi, accepted aşamasında kilitlidir — teslim onayı açar.
		{"sender while accepted", models.InterestStatusAccepted, "buyer", true},
		{"sender after confirm", models.InterestStatusConfirmed, "buyer", false},
		{"sender while pending", models.InterestStatusPending, "buyer", false},
		// İlan sahibi hiçbir aşamada kilitlenmez.
		{"owner while accepted", models.InterestStatusAccepted, "owner", false},
		{"owner after confirm", models.InterestStatusConfirmed, "owner", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.locked, composerLocked(thread, tt.status, tt.viewer))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "merhaba", truncateRunes("merhaba", 120))
	require.Equal(t, "ab…", truncateRunes("abcdef", 2))
	// Çok byte'lı karakterler rune sınırından kesilir, bozulmaz.
	require.Equal(t, "çğü…", truncateRunes("çğüşöı", 3))
}
