package embedding

import (
	"testing"

	"github.com/mpatel-dev/cardvault/internal/models"
)

func TestCardText(t *testing.T) {
	tests := []struct {
		name string
		meta models.CardMetadata
		want string
	}{
		{
			name: "all fields",
			meta: models.CardMetadata{
				Player:              "Michael Jordan",
				Year:                "1986",
				Brand:               "Fleer",
				CardNumber:          "57",
				PSAGrade:            "PSA 10",
				CertificationNumber: "12345678",
				Sport:               "Basketball",
			},
			want: "Michael Jordan 1986 Fleer 57 PSA 10 Basketball",
		},
		{
			name: "empty fields skipped",
			meta: models.CardMetadata{Player: "Kobe Bryant", PSAGrade: "PSA 9"},
			want: "Kobe Bryant PSA 9",
		},
		{
			name: "certification number never included",
			meta: models.CardMetadata{CertificationNumber: "99999999"},
			want: "",
		},
		{
			name: "empty metadata",
			meta: models.CardMetadata{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CardText(tt.meta); got != tt.want {
				t.Errorf("CardText() = %q, want %q", got, tt.want)
			}
		})
	}
}
