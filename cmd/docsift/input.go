package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// collectionInput is the analyze command's input file. Persona and job may
// be plain strings or objects ({"role": ...}, {"task": ...}); documents may
// be file names or {"filename": ...} objects.
type collectionInput struct {
	Persona     flexString  `json:"persona"`
	JobToBeDone flexString  `json:"job_to_be_done"`
	Documents   []flexEntry `json:"documents"`
	TopK        int         `json:"top_k,omitempty"`
}

// flexString is a string or an object carrying it under "role" or "task".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var obj struct {
		Role string `json:"role"`
		Task string `json:"task"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("expected a string or an object with role/task: %w", err)
	}
	if obj.Role != "" {
		*f = flexString(obj.Role)
	} else {
		*f = flexString(obj.Task)
	}
	return nil
}

// flexEntry is a document file name or an object carrying it.
type flexEntry string

func (f *flexEntry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexEntry(s)
		return nil
	}
	var obj struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("expected a file name or an object with filename: %w", err)
	}
	*f = flexEntry(obj.Filename)
	return nil
}

func readCollectionInput(path string) (collectionInput, error) {
	var in collectionInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, err
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

// documentNames returns the non-empty document names in order.
func (c collectionInput) documentNames() []string {
	names := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		if d != "" {
			names = append(names, string(d))
		}
	}
	return names
}
