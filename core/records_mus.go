package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted types. Written by hand against the mus-go
// primitive serializers; field order is part of the storage format and must
// not change between releases.
var (
	IDMUS              = idMUS{}
	SectionKindMUS     = sectionKindMUS{}
	EmbeddingRecordMUS = embeddingRecordMUS{}

	vectorMUS = ord.NewSliceSer[float32](raw.Float32)
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type sectionKindMUS struct{}

func (sectionKindMUS) Marshal(v SectionKind, bs []byte) int {
	return varint.Int.Marshal(int(v), bs)
}

func (sectionKindMUS) Unmarshal(bs []byte) (SectionKind, int, error) {
	v, n, err := varint.Int.Unmarshal(bs)
	return SectionKind(v), n, err
}

func (sectionKindMUS) Size(v SectionKind) int {
	return varint.Int.Size(int(v))
}

func (sectionKindMUS) Skip(bs []byte) (int, error) {
	return varint.Int.Skip(bs)
}

type embeddingRecordMUS struct{}

func (s embeddingRecordMUS) Marshal(v EmbeddingRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += ord.String.Marshal(v.Subject, bs[n:])
	n += SectionKindMUS.Marshal(v.Section, bs[n:])
	n += varint.Int.Marshal(v.ItemIndex, bs[n:])
	n += varint.Int.Marshal(v.WindowIndex, bs[n:])
	n += varint.Int.Marshal(v.SequenceIndex, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += varint.Int.Marshal(v.SpanStart, bs[n:])
	n += varint.Int.Marshal(v.SpanEnd, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += varint.Int64.Marshal(v.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (s embeddingRecordMUS) Unmarshal(bs []byte) (v EmbeddingRecord, n int, err error) {
	var c int
	if v.ID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentID, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Subject, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Section, c, err = SectionKindMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ItemIndex, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.WindowIndex, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.SequenceIndex, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Text, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.SpanStart, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.SpanEnd, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.SourceURL, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Vector, c, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	var micros int64
	if micros, c, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.InsertedAt = time.UnixMicro(micros).UTC()
	if micros, c, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.UpdatedAt = time.UnixMicro(micros).UTC()
	return v, n, nil
}

func (s embeddingRecordMUS) Size(v EmbeddingRecord) (size int) {
	size = IDMUS.Size(v.ID)
	size += ord.String.Size(v.DocumentID)
	size += ord.String.Size(v.Subject)
	size += SectionKindMUS.Size(v.Section)
	size += varint.Int.Size(v.ItemIndex)
	size += varint.Int.Size(v.WindowIndex)
	size += varint.Int.Size(v.SequenceIndex)
	size += ord.String.Size(v.Text)
	size += varint.Int.Size(v.SpanStart)
	size += varint.Int.Size(v.SpanEnd)
	size += ord.String.Size(v.SourceURL)
	size += vectorMUS.Size(v.Vector)
	size += varint.Int64.Size(v.InsertedAt.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}

func (s embeddingRecordMUS) Skip(bs []byte) (n int, err error) {
	v, n, err := s.Unmarshal(bs)
	_ = v
	return n, err
}
