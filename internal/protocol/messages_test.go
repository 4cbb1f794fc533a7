package protocol

import (
	"encoding/json"
	"testing"
)

// #region inbound-tests

func TestParseJoystickUpdate(t *testing.T) {
	data := []byte(`{"type":"joystick_update","joysticks":{"joystick1":100,"joystick2":512,"joystick3":900}}`)
	in, err := ParseInbound(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if in.Kind != KindJoystickUpdate {
		t.Fatalf("kind = %s, want joystick_update", in.Kind)
	}
	if in.Joysticks != [3]int{100, 512, 900} {
		t.Fatalf("joysticks = %v", in.Joysticks)
	}
}

func TestParseJoystickUpdateMissingChannel(t *testing.T) {
	data := []byte(`{"type":"joystick_update","joysticks":{"joystick1":100,"joystick2":512}}`)
	if _, err := ParseInbound(data); err == nil {
		t.Fatalf("expected error for missing channel")
	}
}

func TestParseStateSnapshotOptionalLeds(t *testing.T) {
	data := []byte(`{"type":"state","joysticks":{"joystick1":1,"joystick2":2,"joystick3":3}}`)
	in, err := ParseInbound(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if in.Kind != KindStateSnapshot {
		t.Fatalf("kind = %s, want state", in.Kind)
	}
	if in.Joysticks != [3]int{1, 2, 3} {
		t.Fatalf("joysticks = %v", in.Joysticks)
	}
	if in.Leds != [3]int{} {
		t.Fatalf("leds should default to zero, got %v", in.Leds)
	}
}

func TestParseSetDifficulty(t *testing.T) {
	in, err := ParseInbound([]byte(`{"type":"set_difficulty","difficulty":"hard"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if in.Kind != KindSetDifficulty || in.Difficulty != "hard" {
		t.Fatalf("got %+v", in)
	}

	if _, err := ParseInbound([]byte(`{"type":"set_difficulty"}`)); err == nil {
		t.Fatalf("expected error for missing difficulty")
	}
}

func TestParseReset(t *testing.T) {
	in, err := ParseInbound([]byte(`{"type":"reset"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if in.Kind != KindReset {
		t.Fatalf("kind = %s, want reset", in.Kind)
	}
}

func TestParseUnknownTypeIsNotAnError(t *testing.T) {
	in, err := ParseInbound([]byte(`{"type":"firmware_ping"}`))
	if err != nil {
		t.Fatalf("unrecognized type should not error: %v", err)
	}
	if in.Kind != KindUnknown {
		t.Fatalf("kind = %s, want unknown", in.Kind)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{}`),
		[]byte(`{"type":"joystick_update"}`),
		[]byte(`{"type":"led_control"}`),
	}
	for _, data := range cases {
		if _, err := ParseInbound(data); err == nil {
			t.Fatalf("expected error for %s", data)
		}
	}
}

// #endregion inbound-tests

// #region outbound-tests

func TestEncodeLedControlClamps(t *testing.T) {
	data := EncodeLedControl([3]int{-10, 128, 999})

	var m struct {
		Type string `json:"type"`
		Leds struct {
			Led1 int `json:"led1"`
			Led2 int `json:"led2"`
			Led3 int `json:"led3"`
		} `json:"leds"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != "led_control" {
		t.Fatalf("type = %s", m.Type)
	}
	if m.Leds.Led1 != 0 || m.Leds.Led2 != 128 || m.Leds.Led3 != 255 {
		t.Fatalf("leds not clamped: %+v", m.Leds)
	}
}

func TestEncodedLedControlRoundTrips(t *testing.T) {
	in, err := ParseInbound(EncodeLedControl([3]int{10, 20, 30}))
	if err != nil {
		t.Fatalf("parse own encoding: %v", err)
	}
	if in.Kind != KindLedControl || in.Leds != [3]int{10, 20, 30} {
		t.Fatalf("got %+v", in)
	}
}

func TestEncodeEvents(t *testing.T) {
	var pin struct {
		Type    string `json:"type"`
		Channel int    `json:"channel"`
	}
	if err := json.Unmarshal(EncodePinLocked(2), &pin); err != nil {
		t.Fatalf("decode pin_locked: %v", err)
	}
	if pin.Type != "pin_locked" || pin.Channel != 2 {
		t.Fatalf("pin_locked = %+v", pin)
	}

	var unlocked struct {
		Type      string `json:"type"`
		ElapsedMs int64  `json:"elapsed_ms"`
	}
	if err := json.Unmarshal(EncodeSessionUnlocked(12500), &unlocked); err != nil {
		t.Fatalf("decode session_unlocked: %v", err)
	}
	if unlocked.Type != "session_unlocked" || unlocked.ElapsedMs != 12500 {
		t.Fatalf("session_unlocked = %+v", unlocked)
	}

	var reset struct {
		Type       string `json:"type"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.Unmarshal(EncodeSessionReset("easy"), &reset); err != nil {
		t.Fatalf("decode session_reset: %v", err)
	}
	if reset.Type != "session_reset" || reset.Difficulty != "easy" {
		t.Fatalf("session_reset = %+v", reset)
	}
}

// #endregion outbound-tests
