package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
	tickFreq   = 660
	tickLength = 30 * time.Millisecond
)

// Sound plays a short sine tick. A nil *Sound is silent.
type Sound struct {
	rate beep.SampleRate
}

func NewSound() (*Sound, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	return &Sound{rate: sampleRate}, nil
}

func (s *Sound) Tick() {
	if s == nil {
		return
	}
	sine, err := generators.SineTone(s.rate, tickFreq)
	if err != nil {
		return
	}
	tone := &effects.Volume{
		Streamer: beep.Take(s.rate.N(tickLength), sine),
		Base:     2,
		Volume:   -2,
	}
	speaker.Play(tone)
}

func (s *Sound) Close() {
	if s == nil {
		return
	}
	speaker.Close()
}
