package xtf

import (
	"fmt"

	"github.com/twinfer/xtf-plugin/pkg/record"
)

// File is everything decoded from one XTF buffer.
type File struct {
	Size     int // buffer length in bytes
	Header   *record.Record
	Channels []*record.Record
	Pings    []*Ping
}

// Ping is one ping header and the channel headers that follow it.
type Ping struct {
	Index    int
	Offset   int
	Header   *record.Record
	Channels []*record.Record

	channelOffsets []int
	end            int
}

// End returns the offset just past the last record of the ping.
func (p *Ping) End() int {
	return p.end
}

// PingCount returns the number of pings found.
func (f *File) PingCount() int {
	return len(f.Pings)
}

// UnreadableRecord names a record with fields that failed to decode.
type UnreadableRecord struct {
	Record string
	Offset int
	Fields []string
}

// Unreadable lists every record that has unreadable fields, in file order.
func (f *File) Unreadable() []UnreadableRecord {
	var out []UnreadableRecord
	add := func(label string, rec *record.Record) {
		if rec == nil {
			return
		}
		if fields := rec.Unreadable(); len(fields) > 0 {
			out = append(out, UnreadableRecord{Record: label, Offset: rec.Offset, Fields: fields})
		}
	}

	add("file_header", f.Header)
	for i, ch := range f.Channels {
		add(fmt.Sprintf("channel_info[%d]", i), ch)
	}
	for _, p := range f.Pings {
		add(fmt.Sprintf("ping[%d].header", p.Index), p.Header)
		for j, ch := range p.Channels {
			add(fmt.Sprintf("ping[%d].channel[%d]", p.Index, j), ch)
		}
	}
	return out
}

// ToMap converts the file to plain Go values suitable for JSON or a
// structured message. Lists are []any so the result can be fed back to
// Serialize.
func (f *File) ToMap() map[string]any {
	channels := make([]any, len(f.Channels))
	for i, ch := range f.Channels {
		channels[i] = ch.ToMap()
	}
	pings := make([]any, len(f.Pings))
	for i, p := range f.Pings {
		pings[i] = p.ToMap()
	}

	unreadable := make([]any, 0)
	for _, u := range f.Unreadable() {
		fields := make([]any, len(u.Fields))
		for i, name := range u.Fields {
			fields[i] = name
		}
		unreadable = append(unreadable, map[string]any{
			"record": u.Record,
			"offset": u.Offset,
			"fields": fields,
		})
	}

	var header map[string]any
	if f.Header != nil {
		header = f.Header.ToMap()
	}

	return map[string]any{
		"size":        f.Size,
		"file_header": header,
		"channels":    channels,
		"pings":       pings,
		"ping_count":  len(f.Pings),
		"unreadable":  unreadable,
	}
}

// ToMap converts the ping to plain Go values.
func (p *Ping) ToMap() map[string]any {
	channels := make([]any, len(p.Channels))
	for i, ch := range p.Channels {
		channels[i] = ch.ToMap()
	}
	return map[string]any{
		"index":    p.Index,
		"offset":   p.Offset,
		"header":   p.Header.ToMap(),
		"channels": channels,
	}
}
