package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ": ", cfg.Prompt)
	assert.False(t, cfg.TranscriptsEnabled())
}

func TestConfiguration_Validate(t *testing.T) {
	cases := map[string]struct {
		modify    func(*Configuration)
		wantField string
	}{
		"default": {
			modify: func(*Configuration) {},
		},
		"empty prompt": {
			modify:    func(c *Configuration) { c.Prompt = "" },
			wantField: "prompt",
		},
		"bad color": {
			modify:    func(c *Configuration) { c.Color = "sometimes" },
			wantField: "color",
		},
		"bad level": {
			modify:    func(c *Configuration) { c.Log.Level = "loud" },
			wantField: "level",
		},
		"missing log file": {
			modify:    func(c *Configuration) { c.Log.File = "" },
			wantField: "file",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := defaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.wantField, verrs[0].Field())
		})
	}
}
