package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Checkpoint records the last completed run of a batch job, such as
// seeding from a data file.
type Checkpoint struct {
	Name        string
	Fingerprint string // Digest of the job's input
	Count       int    // Records processed
	UpdatedAt   time.Time
}

// CheckpointMUS serializes Checkpoint in the MUS binary format.
var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.Fingerprint, bs[n:])
	n += varint.Int.Marshal(v.Count, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Fingerprint, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.Fingerprint)
	size += varint.Int.Size(v.Count)
	return size + timeMUS.Size(v.UpdatedAt)
}
