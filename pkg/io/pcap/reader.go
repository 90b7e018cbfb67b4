// Package pcap turns packet captures into multivariate time series by
// aggregating packets into fixed-width time buckets. Each bucket becomes
// one timestep of traffic statistics suitable for a series detector.
package pcap

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// DefaultInterval is the bucket width used when none is configured.
const DefaultInterval = time.Second

// Reader reads packets from PCAP files or live interfaces and emits one
// feature row per time bucket.
type Reader struct {
	handle   *pcap.Handle
	interval time.Duration
	isLive   bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithInterval sets the bucket width.
func WithInterval(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewFileReader creates a reader for PCAP files.
func NewFileReader(filename string, opts ...Option) (*Reader, error) {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{handle: handle, interval: DefaultInterval}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewLiveReader creates a reader for live packet capture.
func NewLiveReader(iface string, snaplen int32, promisc bool, timeout time.Duration, opts ...Option) (*Reader, error) {
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, err
	}

	r := &Reader{handle: handle, interval: DefaultInterval, isLive: true}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// FeatureNames returns the channel names of the emitted series.
func FeatureNames() []string {
	return []string{
		"packet_count",
		"total_bytes",
		"mean_packet_size",
		"tcp_fraction",
		"udp_fraction",
		"syn_count",
	}
}

// bucket accumulates traffic statistics for one interval.
type bucket struct {
	count    int
	bytes    int
	tcpCount int
	udpCount int
	synCount int
}

func (b *bucket) add(packet gopacket.Packet) {
	b.count++
	b.bytes += len(packet.Data())

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		b.tcpCount++
		if tcp := tcpLayer.(*layers.TCP); tcp.SYN {
			b.synCount++
		}
	} else if packet.Layer(layers.LayerTypeUDP) != nil {
		b.udpCount++
	}
}

func (b *bucket) row() []float64 {
	row := make([]float64, 6)
	row[0] = float64(b.count)
	row[1] = float64(b.bytes)
	if b.count > 0 {
		row[2] = float64(b.bytes) / float64(b.count)
		row[3] = float64(b.tcpCount) / float64(b.count)
		row[4] = float64(b.udpCount) / float64(b.count)
	}
	row[5] = float64(b.synCount)
	return row
}

// bucketer assigns packets to consecutive intervals, emitting one row
// per elapsed interval, including empty ones.
type bucketer struct {
	interval time.Duration
	start    time.Time
	current  bucket
	started  bool
}

// feed adds a packet and returns the rows of any buckets it closed.
func (bk *bucketer) feed(packet gopacket.Packet) [][]float64 {
	meta := packet.Metadata()
	if meta == nil || meta.Timestamp.IsZero() {
		// No capture timestamp; count it in the current bucket.
		bk.current.add(packet)
		return nil
	}

	ts := meta.Timestamp
	if !bk.started {
		bk.start = ts.Truncate(bk.interval)
		bk.started = true
	}

	var rows [][]float64
	for !ts.Before(bk.start.Add(bk.interval)) {
		rows = append(rows, bk.current.row())
		bk.current = bucket{}
		bk.start = bk.start.Add(bk.interval)
	}

	bk.current.add(packet)
	return rows
}

// flush returns the final partial bucket, if any packets were seen.
func (bk *bucketer) flush() [][]float64 {
	if !bk.started && bk.current.count == 0 {
		return nil
	}
	return [][]float64{bk.current.row()}
}

// Read consumes the whole capture and returns the bucketed series.
func (r *Reader) Read() ([][]float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	bk := &bucketer{interval: r.interval}
	var series [][]float64

	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range packetSource.Packets() {
		series = append(series, bk.feed(packet)...)
	}
	return append(series, bk.flush()...), nil
}

// Stream returns a channel of bucket rows for real-time processing.
// A row is emitted whenever a packet closes its bucket, so emission lags
// the wire by up to one interval.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	out := make(chan []float64, 100)
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	go func() {
		defer close(out)
		bk := &bucketer{interval: r.interval}

		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-packetSource.Packets():
				if !ok {
					for _, row := range bk.flush() {
						select {
						case out <- row:
						case <-ctx.Done():
						}
					}
					return
				}
				for _, row := range bk.feed(packet) {
					select {
					case out <- row:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	return nil
}
