package state

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpdateAndGet(t *testing.T) {
	store := NewStore(map[string]interface{}{
		KeyAnimation: nil,
		KeyDistances: DefaultReadings(5),
	})

	store.Update(KeyAnimation, "rainbow")

	snapshot := store.Get()
	assert.Equal(t, "rainbow", snapshot[KeyAnimation])

	readings, ok := snapshot[KeyDistances].([]Reading)
	require.True(t, ok)
	assert.Len(t, readings, 5)
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := NewStore(map[string]interface{}{
		KeyDistances: []Reading{NewReading(120, 40)},
	})

	snapshot := store.Get()

	// A writer replacing the readings after the snapshot was taken must not
	// be visible through the snapshot.
	store.Update(KeyDistances, []Reading{NewReading(999, 255)})

	readings := snapshot[KeyDistances].([]Reading)
	require.Len(t, readings, 1)
	require.NotNil(t, readings[0].Distance)
	assert.Equal(t, 120, *readings[0].Distance)
	assert.Equal(t, 40, readings[0].Temperature)
}

func TestStoreSnapshotIsDeepCopy(t *testing.T) {
	store := NewStore(map[string]interface{}{
		KeyDistances: []Reading{NewReading(80, 10)},
	})

	first := store.Get()
	first[KeyDistances].([]Reading)[0].Temperature = 200
	*first[KeyDistances].([]Reading)[0].Distance = 1

	second := store.Get()
	readings := second[KeyDistances].([]Reading)
	assert.Equal(t, 10, readings[0].Temperature)
	assert.Equal(t, 80, *readings[0].Distance)
}

func TestStoreInitialMapIsCopied(t *testing.T) {
	initial := map[string]interface{}{
		KeyDistances: []Reading{NewReading(50, 5)},
	}
	store := NewStore(initial)

	initial[KeyDistances].([]Reading)[0].Temperature = 99

	readings := store.Get()[KeyDistances].([]Reading)
	assert.Equal(t, 5, readings[0].Temperature)
}

func TestStoreConcurrentReadersNeverTear(t *testing.T) {
	store := NewStore(map[string]interface{}{
		KeyDistances: DefaultReadings(3),
	})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			// Every write is internally consistent: distance == temperature.
			store.Update(KeyDistances, []Reading{
				NewReading(i, i), NewReading(i, i), NewReading(i, i),
			})
		}
	}()

	for i := 0; i < 500; i++ {
		snapshot := store.Get()
		readings := snapshot[KeyDistances].([]Reading)
		for _, r := range readings {
			if r.Distance == nil {
				continue // initial placeholder
			}
			require.Equal(t, *r.Distance, r.Temperature,
				"observed a torn write: %v", readings)
		}
	}

	close(stop)
	wg.Wait()
}

func TestReadingJSONRoundTrip(t *testing.T) {
	readings := []Reading{
		NewReading(10, 5),
		MissedReading(42),
	}

	encoded, err := json.Marshal(readings)
	require.NoError(t, err)
	assert.JSONEq(t, `[[10,5],[null,42]]`, string(encoded))

	var decoded []Reading
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, readings, decoded)
}

func TestReadingRejectsMissingTemperature(t *testing.T) {
	var r Reading
	err := json.Unmarshal([]byte(`[10,null]`), &r)
	assert.Error(t, err)
}
