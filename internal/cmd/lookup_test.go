package cmd

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"ely.by/yggrelay/internal/yggdrasil"
)

func TestPrintProfile(t *testing.T) {
	t.Run("profile found", func(t *testing.T) {
		out := &bytes.Buffer{}
		err := printProfile(out, &yggdrasil.Profile{
			Id:         uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"),
			Name:       "Notch",
			Properties: yggdrasil.NewProperties(),
		}, false)

		assert.NoError(t, err)
		assert.JSONEq(t, `{"id": "069a79f444e94726a5befca90e38aaf5", "name": "Notch", "properties": []}`, out.String())
	})

	t.Run("profile not found", func(t *testing.T) {
		out := &bytes.Buffer{}
		err := printProfile(out, nil, false)

		assert.ErrorIs(t, err, errNotFound)
		assert.Empty(t, out.String())
	})
}

func TestPrintJson(t *testing.T) {
	out := &bytes.Buffer{}
	err := printJson(out, map[string]string{"Notch": "069a79f444e94726a5befca90e38aaf5"})

	assert.NoError(t, err)
	assert.Equal(t, "{\"Notch\":\"069a79f444e94726a5befca90e38aaf5\"}\n", out.String())
}
