/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// sceneSchema validates host-exported scene documents before they are
// trusted. Unknown fields are allowed; the host format is richer than the
// view framedeck models.
const sceneSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["elements"],
  "properties": {
    "elements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "frameId": {"type": ["string", "null"]},
          "name": {"type": ["string", "null"]},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "width": {"type": "number"},
          "height": {"type": "number"}
        }
      }
    },
    "files": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["mimeType", "data"],
        "properties": {
          "mimeType": {"type": "string"},
          "data": {"type": "string"}
        }
      }
    }
  }
}`

// ValidateDocument checks raw scene JSON against the scene schema and
// returns a joined description of every violation.
func ValidateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(sceneSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("scene document invalid: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Parse validates and decodes a scene document.
func Parse(data []byte) (*Snapshot, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &snap, nil
}

// FileProvider reads the scene from a host-exported JSON document on disk.
// Each Snapshot call re-reads the file, so an externally updated document is
// picked up on the next reconciliation.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Snapshot() (*Snapshot, error) {
	if p == nil || strings.TrimSpace(p.Path) == "" {
		return nil, errors.New("scene path is required")
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data)
}
