package xtf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twinfer/xtf-plugin/pkg/record"
	"github.com/twinfer/xtf-plugin/pkg/xtfschema"
	"golang.org/x/sync/errgroup"
)

type state int

const (
	stateReadFileHeader state = iota
	stateReadChannelInfos
	stateScanForPing
	stateReadPingHeader
	stateReadPingChannels
	stateDone
)

var stateNames = [...]string{
	stateReadFileHeader:   "read_file_header",
	stateReadChannelInfos: "read_channel_infos",
	stateScanForPing:      "scan_for_ping",
	stateReadPingHeader:   "read_ping_header",
	stateReadPingChannels: "read_ping_channels",
	stateDone:             "done",
}

func (s state) String() string {
	return stateNames[s]
}

// pipeline holds the state of a single Parse call.
type pipeline struct {
	set     *xtfschema.Set
	buf     []byte
	reader  *record.Reader
	decoder *record.Decoder
	scanner *Scanner
	logger  *slog.Logger

	// deferChans records channel header offsets instead of decoding them.
	deferChans bool

	st        state
	cursor    int
	remaining int
	file      *File
	ping      *Ping
}

func (r *pipeline) execute(ctx context.Context) (*File, error) {
	r.file = &File{Size: len(r.buf)}
	r.st = stateReadFileHeader

	for r.st != stateDone {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		next, err := r.step(ctx)
		if err != nil {
			return nil, err
		}
		if next != r.st {
			r.logger.DebugContext(ctx, "Pipeline transition", "from", r.st.String(), "to", next.String(), "cursor", r.cursor)
		}
		r.st = next
	}
	return r.file, nil
}

func (r *pipeline) step(ctx context.Context) (state, error) {
	switch r.st {
	case stateReadFileHeader:
		rec, err := r.decoder.DecodeReader(ctx, r.set.FileHeader, r.reader, 0)
		if err != nil {
			return stateDone, fmt.Errorf("decoding file header: %w", err)
		}
		r.file.Header = rec
		r.cursor = rec.End
		r.remaining = r.count(ctx, rec, r.set.ChannelCountField)
		return stateReadChannelInfos, nil

	case stateReadChannelInfos:
		if r.remaining == 0 {
			return stateScanForPing, nil
		}
		rec, err := r.decoder.DecodeReader(ctx, r.set.ChannelInfo, r.reader, r.cursor)
		if err != nil {
			return stateDone, fmt.Errorf("decoding channel info %d: %w", len(r.file.Channels), err)
		}
		r.file.Channels = append(r.file.Channels, rec)
		r.cursor = rec.End
		r.remaining--
		return stateReadChannelInfos, nil

	case stateScanForPing:
		off, ok := r.scanner.Next(r.buf, r.cursor)
		if !ok {
			return stateDone, nil
		}
		r.cursor = off
		return stateReadPingHeader, nil

	case stateReadPingHeader:
		rec, err := r.decoder.DecodeReader(ctx, r.set.PingHeader, r.reader, r.cursor)
		if err != nil {
			return stateDone, fmt.Errorf("decoding ping %d header at %d: %w", len(r.file.Pings), r.cursor, err)
		}
		r.ping = &Ping{Index: len(r.file.Pings), Offset: r.cursor, Header: rec}
		r.file.Pings = append(r.file.Pings, r.ping)
		r.remaining = r.count(ctx, rec, r.set.PingChannelCountField)
		r.advance(rec.End)
		return stateReadPingChannels, nil

	case stateReadPingChannels:
		if r.remaining == 0 {
			r.ping.end = r.cursor
			return stateScanForPing, nil
		}
		if r.deferChans {
			size, err := r.set.PingChannelHeader.Size()
			if err != nil {
				return stateDone, fmt.Errorf("sizing ping channel header: %w", err)
			}
			r.ping.channelOffsets = append(r.ping.channelOffsets, r.cursor)
			r.cursor += size
		} else {
			rec, err := r.decoder.DecodeReader(ctx, r.set.PingChannelHeader, r.reader, r.cursor)
			if err != nil {
				return stateDone, fmt.Errorf("decoding ping %d channel %d: %w", r.ping.Index, len(r.ping.Channels), err)
			}
			r.ping.Channels = append(r.ping.Channels, rec)
			r.cursor = rec.End
		}
		r.remaining--
		return stateReadPingChannels, nil
	}

	return stateDone, fmt.Errorf("invalid pipeline state %d", r.st)
}

// advance moves the cursor to end, always making progress so a degenerate
// schema cannot stall the scan on the same magic number.
func (r *pipeline) advance(end int) {
	if end <= r.cursor {
		end = r.cursor + 1
	}
	r.cursor = end
}

// count reads a record count field. An unreadable count is treated as zero.
func (r *pipeline) count(ctx context.Context, rec *record.Record, field string) int {
	n, ok := rec.Uint(field)
	if !ok {
		r.logger.WarnContext(ctx, "Count field unreadable, assuming zero", "record", rec.Schema, "field", field, "offset", rec.Offset)
		return 0
	}
	return int(n)
}

// decodeChannelsConcurrently fills in the channel headers recorded while
// deferChans was set. Each ping is independent once its offsets are known.
func (r *pipeline) decodeChannelsConcurrently(ctx context.Context, file *File, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ping := range file.Pings {
		if len(ping.channelOffsets) == 0 {
			continue
		}
		g.Go(func() error {
			reader := record.NewReader(r.buf)
			channels := make([]*record.Record, len(ping.channelOffsets))
			for i, off := range ping.channelOffsets {
				rec, err := r.decoder.DecodeReader(gctx, r.set.PingChannelHeader, reader, off)
				if err != nil {
					return fmt.Errorf("decoding ping %d channel %d: %w", ping.Index, i, err)
				}
				channels[i] = rec
			}
			ping.Channels = channels
			return nil
		})
	}
	return g.Wait()
}
