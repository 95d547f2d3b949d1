package probe

import (
	"testing"
)

const sampleFFprobeJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "disposition": {"default": 1, "attached_pic": 0}
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "channels": 2,
      "channel_layout": "stereo",
      "sample_rate": "48000",
      "bit_rate": "128000",
      "disposition": {"default": 1}
    }
  ],
  "format": {
    "filename": "acquire.video.mkv",
    "format_name": "matroska,webm",
    "duration": "212.480000",
    "size": "52428800",
    "bit_rate": "1974051"
  }
}`

func TestParseJSON(t *testing.T) {
	r, err := ParseJSON([]byte(sampleFFprobeJSON))
	if err != nil {
		t.Fatal(err)
	}

	if !r.HasVideo {
		t.Error("HasVideo should be true")
	}
	if !r.HasAudio() {
		t.Fatal("HasAudio should be true")
	}

	a := r.AudioStreams[0]
	if a.Codec != "aac" || a.Channels != 2 || a.SampleRate != 48000 || a.BitRate != 128000 {
		t.Errorf("audio stream = %+v", a)
	}

	f := r.Format
	if f.FormatName != "matroska,webm" || f.Size != 52428800 {
		t.Errorf("format = %+v", f)
	}
	if f.Duration < 212 || f.Duration > 213 {
		t.Errorf("duration = %v", f.Duration)
	}
}

func TestParseJSON_AttachedPicIsNotVideo(t *testing.T) {
	data := `{
  "streams": [
    {"index": 0, "codec_name": "mp3", "codec_type": "audio", "channels": 2},
    {"index": 1, "codec_name": "mjpeg", "codec_type": "video", "disposition": {"attached_pic": 1}}
  ],
  "format": {"format_name": "mp3"}
}`
	r, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if r.HasVideo {
		t.Error("cover art must not count as video content")
	}
	if !r.HasAudio() {
		t.Error("HasAudio should be true")
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	if _, err := ParseJSON([]byte("not json")); err == nil {
		t.Error("expected parse error")
	}
}

const sampleLoudnormStderr = `ffmpeg version 6.1 Copyright (c) 2000-2023 the FFmpeg developers
Input #0, mp3, from 'assemble.audio.mp3':
  Duration: 00:03:32.48, start: 0.023021, bitrate: 320 kb/s
[Parsed_loudnorm_0 @ 0x5594c2b07e00]
{
	"input_i" : "-23.14",
	"input_tp" : "-4.51",
	"input_lra" : "9.80",
	"input_thresh" : "-33.61",
	"output_i" : "-14.02",
	"output_tp" : "-2.00",
	"output_lra" : "7.10",
	"output_thresh" : "-24.48",
	"normalization_type" : "dynamic",
	"target_offset" : "0.02"
}
`

func TestParseLoudnorm(t *testing.T) {
	m, err := ParseLoudnorm(sampleLoudnormStderr)
	if err != nil {
		t.Fatal(err)
	}
	if m.InputI != "-23.14" || m.InputTP != "-4.51" || m.InputLRA != "9.80" {
		t.Errorf("measurement = %+v", m)
	}
	if m.InputThresh != "-33.61" || m.TargetOffset != "0.02" {
		t.Errorf("measurement = %+v", m)
	}
}

func TestParseLoudnorm_NoBlock(t *testing.T) {
	if _, err := ParseLoudnorm("plain ffmpeg noise without json"); err == nil {
		t.Error("expected error when no JSON block is present")
	}
}

func TestParseLoudnorm_MissingInputI(t *testing.T) {
	if _, err := ParseLoudnorm(`log {"output_i": "-14.0"}`); err == nil {
		t.Error("expected error when input_i is absent")
	}
}
