// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	mapFEa1NΣWzWΔhQczFwUqb7FQΞΞ   = ord.NewMapSer[string, string](ord.String, ord.String)
	sliceethaYmDXcA9dSYg0C7J6LAΞΞ = ord.NewSliceSer[float32](varint.Float32)
)

var IDMUS = iDMUS{}

type iDMUS struct{}

func (s iDMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s iDMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s iDMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s iDMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var ArticleMUS = articleMUS{}

type articleMUS struct{}

func (s articleMUS) Marshal(v Article, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.URL, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.PublishedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
	n += sliceethaYmDXcA9dSYg0C7J6LAΞΞ.Marshal(v.Vector, bs[n:])
	return n + mapFEa1NΣWzWΔhQczFwUqb7FQΞΞ.Marshal(v.Metadata, bs[n:])
}

func (s articleMUS) Unmarshal(bs []byte) (v Article, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.URL, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PublishedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = sliceethaYmDXcA9dSYg0C7J6LAΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = mapFEa1NΣWzWΔhQczFwUqb7FQΞΞ.Unmarshal(bs[n:])
	n += n1
	return
}

func (s articleMUS) Size(v Article) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.URL)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Source)
	size += raw.TimeUnixMicro.Size(v.PublishedAt)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	size += raw.TimeUnixMicro.Size(v.UpdatedAt)
	size += sliceethaYmDXcA9dSYg0C7J6LAΞΞ.Size(v.Vector)
	return size + mapFEa1NΣWzWΔhQczFwUqb7FQΞΞ.Size(v.Metadata)
}

func (s articleMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceethaYmDXcA9dSYg0C7J6LAΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = mapFEa1NΣWzWΔhQczFwUqb7FQΞΞ.Skip(bs[n:])
	n += n1
	return
}

var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.ProcessorType, bs)
	n += IDMUS.Marshal(v.LastId, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.ProcessorType, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.LastId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.ProcessorType)
	size += IDMUS.Size(v.LastId)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}
