// Package mp4probe reads video track metadata from MP4 files.
//
// gifpress does not decode video. Probing tells a caller how large a job
// will be (dimensions, frame count, rate) before an external decoder
// extracts frames, so the output can be sized and estimated up front.
package mp4probe

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("mp4probe: no video track found")

// Info describes the first video track of an MP4 file.
type Info struct {
	Codec      string  // Sample entry type: avc1, av01, hvc1, ...
	Width      int     // Coded width in pixels
	Height     int     // Coded height in pixels
	Samples    int     // Number of video samples
	Duration   float64 // Track duration in seconds
	FPS        float64 // Average sample rate (0 when the duration is unknown)
	Timescale  uint32
	Fragmented bool
}

// FramesAt returns how many frames a source sampled at fps would yield.
// A non-positive fps keeps every sample.
func (i Info) FramesAt(fps float64) int {
	if fps <= 0 || i.Duration <= 0 {
		return i.Samples
	}
	return int(math.Ceil(i.Duration*fps - 1e-9))
}

// ProbeFile opens path and probes it.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Probe(f)
}

// Probe reads the box structure from r and describes its video track.
func Probe(r io.ReadSeeker) (Info, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return Info{}, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if moov == nil && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return Info{}, ErrNoVideoTrack
	}

	trak := videoTrack(moov)
	if trak == nil {
		return Info{}, ErrNoVideoTrack
	}

	info := Info{Timescale: 1000}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		info.Timescale = trak.Mdia.Mdhd.Timescale
	}
	describeSampleEntry(trak, &info)

	var ticks uint64
	if mp4File.IsFragmented() {
		info.Fragmented = true
		ticks, err = fragmentedSamples(mp4File, moov, trak.Tkhd.TrackID, &info)
		if err != nil {
			return Info{}, err
		}
	} else {
		ticks = progressiveSamples(trak, &info)
	}

	info.Duration = float64(ticks) / float64(info.Timescale)
	if info.Duration > 0 {
		info.FPS = float64(info.Samples) / info.Duration
	}
	return info, nil
}

func videoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

func describeSampleEntry(trak *mp4.TrakBox, info *Info) {
	if trak.Tkhd != nil {
		info.Width = int(trak.Tkhd.Width >> 16)
		info.Height = int(trak.Tkhd.Height >> 16)
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		info.Codec = child.Type()
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok && vse.Width > 0 && vse.Height > 0 {
			info.Width = int(vse.Width)
			info.Height = int(vse.Height)
		}
		return
	}
}

// progressiveSamples reads the sample count from stsz and the duration from
// stts, falling back to mdhd.
func progressiveSamples(trak *mp4.TrakBox, info *Info) uint64 {
	var ticks uint64
	if stbl := trak.Mdia.Minf.Stbl; stbl != nil {
		if stbl.Stsz != nil {
			info.Samples = int(stbl.Stsz.SampleNumber)
		}
		if stbl.Stts != nil {
			for i, count := range stbl.Stts.SampleCount {
				ticks += uint64(count) * uint64(stbl.Stts.SampleTimeDelta[i])
			}
		}
	}
	if ticks == 0 && trak.Mdia.Mdhd != nil {
		ticks = trak.Mdia.Mdhd.Duration
	}
	return ticks
}

// fragmentedSamples walks every fragment of the track, resolving defaults
// through its trex box.
func fragmentedSamples(mp4File *mp4.File, moov *mp4.MoovBox, trackID uint32, info *Info) (uint64, error) {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var ticks uint64
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return 0, fmt.Errorf("get samples: %w", err)
				}
				for _, s := range samples {
					ticks += uint64(s.Dur)
				}
				info.Samples += len(samples)
				break
			}
		}
	}
	return ticks, nil
}
