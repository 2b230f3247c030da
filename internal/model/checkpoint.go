package model

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// checkpointEntry is one serialized parameter.
type checkpointEntry struct {
	Name  string
	Shape []int
	Data  []float32
}

// checkpointFile is the gob payload written by Save. It snapshots the
// trainable state plus the training counters; optimizer moments are rebuilt
// from scratch on resume.
type checkpointFile struct {
	Entries      []checkpointEntry
	LearningRate float32
	GlobalStep   int
}

// Save writes all parameters, the learning rate and the global step to path.
func (m *Model[B]) Save(path string) error {
	file := checkpointFile{
		LearningRate: m.learningRate,
		GlobalStep:   m.globalStep,
	}
	for _, p := range m.params {
		data := make([]float32, p.Tensor().NumElements())
		copy(data, p.Tensor().Data())
		file.Entries = append(file.Entries, checkpointEntry{
			Name:  p.Name(),
			Shape: p.Tensor().Shape(),
			Data:  data,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(file); err != nil {
		f.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return f.Close()
}

// Load restores parameters and training counters from a checkpoint written
// by Save. Every parameter of the current model must be present with a
// matching shape.
func (m *Model[B]) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var file checkpointFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}

	byName := make(map[string]checkpointEntry, len(file.Entries))
	for _, e := range file.Entries {
		byName[e.Name] = e
	}

	for _, p := range m.params {
		entry, ok := byName[p.Name()]
		if !ok {
			return fmt.Errorf("checkpoint missing parameter %s", p.Name())
		}
		if !p.Tensor().Shape().Equal(tensor.Shape(entry.Shape)) {
			return fmt.Errorf("parameter %s shape mismatch: checkpoint %v, model %v",
				p.Name(), entry.Shape, p.Tensor().Shape())
		}
		copy(p.Tensor().Data(), entry.Data)
	}

	m.learningRate = file.LearningRate
	m.globalStep = file.GlobalStep
	if m.optimizer != nil {
		m.optimizer.SetLR(m.learningRate)
	}
	return nil
}
