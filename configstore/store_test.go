package configstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/variant"
)

func TestStore_ReadAfterWrite(t *testing.T) {
	s := New(nil)

	pairs := variant.Map{
		"Timeout":       variant.Int(1000),
		"TimeoutPhrase": variant.String("Hey"),
		"Ratio":         variant.Double(0.5),
		"Enabled":       variant.Bool(true),
	}
	for k, v := range pairs {
		require.NoError(t, s.Set(k, v))
	}

	all := s.GetAll()
	for k, v := range pairs {
		assert.True(t, all[k].Equal(v), "key %s", k)
	}
}

func TestStore_SetInvalidArgument(t *testing.T) {
	s := New(nil)

	err := s.Set("", variant.Int(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	err = s.Set("Timeout", variant.Value{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	assert.Equal(t, 0, s.Len(), "failed Set must not mutate the store")
}

func TestStore_NoSemanticValidation(t *testing.T) {
	s := New(variant.Map{"Timeout": variant.Int(1000)})

	// Negative values and type overwrites are accepted: the store performs no
	// validation beyond type and presence.
	require.NoError(t, s.Set("Timeout", variant.Int(-5)))
	assert.Equal(t, variant.Int(-5), s.GetAll()["Timeout"])

	require.NoError(t, s.Set("Timeout", variant.String("now a string")))
	assert.Equal(t, variant.String("now a string"), s.GetAll()["Timeout"])
}

func TestStore_GetAllCopyIsolation(t *testing.T) {
	s := New(variant.Map{"Timeout": variant.Int(1000)})

	snapshot := s.GetAll()
	snapshot["Timeout"] = variant.Int(999)
	snapshot["Injected"] = variant.Bool(true)

	all := s.GetAll()
	assert.Equal(t, variant.Int(1000), all["Timeout"], "external mutation must not affect the store")
	assert.NotContains(t, all, "Injected")
}

func TestStore_InitialMapIsolation(t *testing.T) {
	initial := variant.Map{"Timeout": variant.Int(1000)}
	s := New(initial)

	initial["Timeout"] = variant.Int(1)
	assert.Equal(t, variant.Int(1000), s.GetAll()["Timeout"])
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(variant.Map{"Timeout": variant.Int(0)})

	const goroutines = 16
	const operations = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < operations; i++ {
				if g%2 == 0 {
					_ = s.Set(fmt.Sprintf("key-%d", g), variant.Int(int64(i)))
				} else {
					snapshot := s.GetAll()
					if _, ok := snapshot["Timeout"]; !ok {
						t.Error("Timeout key disappeared")
						return
					}
				}
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, goroutines/2+1, s.Len())
}
