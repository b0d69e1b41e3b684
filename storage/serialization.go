// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"

	"github.com/poiesic/fabmatch/core"
)

// MarshalEquipment serializes an Equipment to bytes.
func MarshalEquipment(e *core.Equipment) []byte {
	buf := make([]byte, core.EquipmentMUS.Size(*e))
	core.EquipmentMUS.Marshal(*e, buf)
	return buf
}

// UnmarshalEquipment deserializes an Equipment from bytes.
func UnmarshalEquipment(data []byte) (*core.Equipment, error) {
	e, _, err := core.EquipmentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: equipment: %w", ErrSerializationFailed, err)
	}
	return &e, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: checkpoint: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}
