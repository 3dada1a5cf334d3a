// Package shape loads the sculpture geometry description and owns the
// face-indexed LED buffer. The physical strip driver is an external
// collaborator behind the Strip interface.
package shape

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Color is one RGB pixel value.
type Color [3]uint8

// Strip is the LED output owned by whichever animation is currently
// running. Implementations write the buffer out to hardware.
type Strip interface {
	Set(index int, c Color)
	Write() error
}

// Position is a face center in normalized 3-D space.
type Position [3]float64

type faceSpec struct {
	FaceID  int      `json:"face_id"`
	Index   int      `json:"index"`
	Layer   int      `json:"layer"`
	Sensors []int    `json:"sensors"`
	Pos     Position `json:"pos"`
}

type shapeSpec struct {
	LEDPerFace *int       `json:"led_per_face"`
	Sensors    int        `json:"sensors"`
	Faces      []faceSpec `json:"faces"`
}

// Shape is the loaded geometry: faces grouped into layers, the sensor
// mapping in both directions, and the LED buffer for the whole strip.
type Shape struct {
	Name        string
	LEDsPerFace int
	NumFaces    int

	// Layers holds face IDs grouped by layer, each layer ordered by the
	// face's index field. Sweep animations walk these for adjacency.
	Layers [][]int

	// SensorToFaces maps a sensor index to the faces it affects;
	// FaceToSensors is the inverse.
	SensorToFaces [][]int
	FaceToSensors [][]int
	Positions     []Position

	strip  Strip
	buffer []Color
}

// Load reads a shape JSON description and binds it to a strip.
func Load(path string, strip Strip) (*Shape, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shape file: %w", err)
	}

	var spec shapeSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("decode shape %s: %w", path, err)
	}
	if spec.LEDPerFace == nil || len(spec.Faces) == 0 {
		return nil, fmt.Errorf("invalid shape data in %s", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sh := &Shape{
		Name:        name,
		LEDsPerFace: *spec.LEDPerFace,
		NumFaces:    len(spec.Faces),
		Layers:      buildLayers(spec.Faces),
		Positions:   make([]Position, len(spec.Faces)),
		strip:       strip,
	}
	sh.buffer = make([]Color, sh.LEDsPerFace*sh.NumFaces)

	sh.FaceToSensors = make([][]int, len(spec.Faces))
	for i, face := range spec.Faces {
		sh.FaceToSensors[i] = append([]int{}, face.Sensors...)
		sh.Positions[i] = face.Pos
	}

	sh.SensorToFaces = make([][]int, spec.Sensors)
	for s := 0; s < spec.Sensors; s++ {
		for faceIdx, face := range spec.Faces {
			for _, fs := range face.Sensors {
				if fs == s {
					sh.SensorToFaces[s] = append(sh.SensorToFaces[s], faceIdx)
					break
				}
			}
		}
	}

	return sh, nil
}

// LoadFromMarker resolves the selected-shape marker file into the shape
// description under dir and loads it.
func LoadFromMarker(markerPath, dir string, strip Strip) (*Shape, error) {
	raw, err := os.ReadFile(markerPath)
	if err != nil {
		return nil, fmt.Errorf("read shape marker: %w", err)
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return nil, fmt.Errorf("shape marker %s is empty", markerPath)
	}
	return Load(filepath.Join(dir, name+".json"), strip)
}

func buildLayers(faces []faceSpec) [][]int {
	maxLayer := 0
	for _, face := range faces {
		if face.Layer > maxLayer {
			maxLayer = face.Layer
		}
	}

	layers := make([][]faceSpec, maxLayer+1)
	for _, face := range faces {
		layers[face.Layer] = append(layers[face.Layer], face)
	}

	out := make([][]int, maxLayer+1)
	for i, layer := range layers {
		sort.Slice(layer, func(a, b int) bool { return layer[a].Index < layer[b].Index })
		out[i] = make([]int, len(layer))
		for j, face := range layer {
			out[i][j] = face.FaceID
		}
	}
	return out
}

// SetFaceColor sets every LED of one face in the buffer.
func (s *Shape) SetFaceColor(face int, c Color) {
	if face < 0 || face >= s.NumFaces {
		return
	}
	offset := s.LEDsPerFace * face
	for i := 0; i < s.LEDsPerFace; i++ {
		s.buffer[offset+i] = c
		s.strip.Set(offset+i, c)
	}
}

// Fill sets every LED in the buffer to one color.
func (s *Shape) Fill(c Color) {
	for i := range s.buffer {
		s.buffer[i] = c
		s.strip.Set(i, c)
	}
}

// FaceColor returns the first LED color of a face.
func (s *Shape) FaceColor(face int) Color {
	if face < 0 || face >= s.NumFaces {
		return Color{}
	}
	return s.buffer[s.LEDsPerFace*face]
}

// Write flushes the buffer to the strip.
func (s *Shape) Write() error {
	return s.strip.Write()
}
