package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// signalsDoc is the file form of model.LearnerSignals. JSON input is read
// through the YAML decoder as well.
type signalsDoc struct {
	CompletionPct  float64 `yaml:"completionPct"`
	QuizAvg        float64 `yaml:"quizAvg"`
	MissedSessions int     `yaml:"missedSessions"`
	LastLogin      string  `yaml:"lastLogin"`
}

func (d signalsDoc) toModel() model.LearnerSignals {
	return model.LearnerSignals{
		CompletionPct:  d.CompletionPct,
		QuizAvg:        d.QuizAvg,
		MissedSessions: d.MissedSessions,
		LastLogin:      model.ISO(d.LastLogin),
	}
}

// batchDoc accepts either a bare list or {signals: [...]}
type batchDoc struct {
	Signals []signalsDoc `yaml:"signals"`
}

// readSignals loads one or more signal documents from path ("-" is stdin).
// Unknown fields are rejected so typos surface instead of scoring as zero.
func readSignals(stdin io.Reader, path string) ([]model.LearnerSignals, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	docs, err := decodeSignals(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]model.LearnerSignals, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

func decodeSignals(data []byte) ([]signalsDoc, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, errors.New("empty document")
	}
	root := node.Content[0]

	switch root.Kind {
	case yaml.SequenceNode:
		var list []signalsDoc
		if err := strictDecode(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "signals" {
				var batch batchDoc
				if err := strictDecode(data, &batch); err != nil {
					return nil, err
				}
				return batch.Signals, nil
			}
		}
		var one signalsDoc
		if err := strictDecode(data, &one); err != nil {
			return nil, err
		}
		return []signalsDoc{one}, nil
	default:
		return nil, errors.New("expected a signals mapping or a list of them")
	}
}

func strictDecode(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}
