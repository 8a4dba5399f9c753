package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUniversity(t *testing.T) {
	tests := []struct {
		code, name string
		want       Kind
	}{
		{"00000", "Celkem", KindIndicator},
		{"10000", "Veřejné vysoké školy", KindIndicator},
		{"60000", "Soukromé vysoké školy", KindIndicator},
		{"11000", "Univerzita Karlova", KindUniversity},
		{"11110", "Katolická teologická fakulta", KindFaculty},
		{"11120", "Filozofická Falulta", KindFaculty},
		{"11901", "Ústav dějin UK", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyUniversity(tt.code, tt.name))
		})
	}
}

func TestUniversityValidate(t *testing.T) {
	assert.NoError(t, (&University{Code: "11000", Kind: KindUniversity}).Validate())
	assert.ErrorContains(t, (&University{Kind: KindFaculty}).Validate(), "missing code")
	assert.ErrorContains(t, (&University{Code: "1"}).Validate(), "missing kind")
	assert.ErrorContains(t, (&University{Code: "60000", Kind: KindIndicator}).Validate(), "unexpected kind")
}
