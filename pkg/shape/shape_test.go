package shape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const octahedronJSON = `{
  "led_per_face": 3,
  "sensors": 2,
  "faces": [
    {"face_id": 0, "index": 1, "layer": 0, "sensors": [0], "pos": [0.0, 0.0, 0.5]},
    {"face_id": 1, "index": 0, "layer": 0, "sensors": [0, 1], "pos": [1.0, 0.0, 0.5]},
    {"face_id": 2, "index": 0, "layer": 1, "sensors": [], "pos": [0.5, 1.0, 0.5]}
  ]
}`

func writeShapeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadShape(t *testing.T) {
	dir := t.TempDir()
	path := writeShapeFile(t, dir, "octahedron.json", octahedronJSON)

	strip := NewMemoryStrip(9)
	sh, err := Load(path, strip)
	require.NoError(t, err)

	assert.Equal(t, "octahedron", sh.Name)
	assert.Equal(t, 3, sh.LEDsPerFace)
	assert.Equal(t, 3, sh.NumFaces)

	// Layers ordered by the index field: face 1 (index 0) before face 0.
	assert.Equal(t, [][]int{{1, 0}, {2}}, sh.Layers)

	assert.Equal(t, [][]int{{0, 1}, {1}}, sh.SensorToFaces)
	assert.Equal(t, [][]int{{0}, {0, 1}, {}}, sh.FaceToSensors)
	assert.Equal(t, Position{1.0, 0.0, 0.5}, sh.Positions[1])
}

func TestLoadShapeRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeShapeFile(t, dir, "bad.json", `{"sensors": 1, "faces": []}`)

	_, err := Load(path, NewMemoryStrip(0))
	assert.Error(t, err)
}

func TestLoadFromMarker(t *testing.T) {
	dir := t.TempDir()
	writeShapeFile(t, dir, "octahedron.json", octahedronJSON)
	marker := writeShapeFile(t, dir, "shape.txt", "octahedron\n")

	sh, err := LoadFromMarker(marker, dir, NewMemoryStrip(9))
	require.NoError(t, err)
	assert.Equal(t, "octahedron", sh.Name)

	empty := writeShapeFile(t, dir, "empty.txt", "  \n")
	_, err = LoadFromMarker(empty, dir, NewMemoryStrip(9))
	assert.Error(t, err)
}

func TestSetFaceColorAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeShapeFile(t, dir, "octahedron.json", octahedronJSON)

	strip := NewMemoryStrip(9)
	sh, err := Load(path, strip)
	require.NoError(t, err)

	red := Color{255, 0, 0}
	sh.SetFaceColor(1, red)
	require.NoError(t, sh.Write())

	pixels := strip.Pixels()
	for i := 3; i < 6; i++ {
		assert.Equal(t, red, pixels[i], "pixel %d", i)
	}
	assert.Equal(t, Color{}, pixels[0])
	assert.Equal(t, red, sh.FaceColor(1))
	assert.Equal(t, 1, strip.Writes())

	// Out-of-range faces are ignored.
	sh.SetFaceColor(99, red)
	assert.Equal(t, Color{}, sh.FaceColor(99))
}
