package dataapi

import (
	"encoding/json"

	"github.com/statspub/dataapi/dataapi/ops"
)

// Batch collects rows to write with Store.Apply.
type Batch struct {
	data ops.Dataset
}

func NewBatch() Batch {
	return Batch{}
}

// Add appends every row of ds.
func (b *Batch) Add(ds Dataset) {
	b.data.Merge(ds)
}

// AddJSON decodes a dataset document and appends it.
func (b *Batch) AddJSON(doc []byte) error {
	var ds Dataset
	if err := json.Unmarshal(doc, &ds); err != nil {
		return Wrap(ErrSchema, "dataset json", err)
	}
	b.Add(ds)
	return nil
}

func (b *Batch) Len() int {
	return b.data.Len()
}

func (b *Batch) Empty() bool {
	return b.data.Len() == 0
}
