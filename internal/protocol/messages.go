package protocol

import (
	"encoding/json"
	"fmt"
)

// #region constants

// ChannelCount is the number of joystick/LED channels on the device.
const ChannelCount = 3

// LED intensity bounds in the device's native range.
const (
	LedMin = 0
	LedMax = 255
)

// #endregion constants

// #region kinds

// Kind tags an inbound message variant. Anything outside the closed set
// parses as KindUnknown and is dropped by the caller.
type Kind string

const (
	KindJoystickUpdate Kind = "joystick_update"
	KindLedUpdate      Kind = "led_update"
	KindStateSnapshot  Kind = "state"
	KindLedControl     Kind = "led_control"
	KindSetDifficulty  Kind = "set_difficulty"
	KindReset          Kind = "reset"
	KindUnknown        Kind = "unknown"
)

// #endregion kinds

// #region inbound

// Inbound is the parsed form of a message arriving over the link: either
// device traffic (joystick updates, LED acks, state snapshots) or a viewer
// control command routed through the bridge.
type Inbound struct {
	Kind       Kind
	Joysticks  [ChannelCount]int
	Leds       [ChannelCount]int
	Difficulty string
}

// wireMessage mirrors the JSON envelope shared by all message types.
type wireMessage struct {
	Type       string          `json:"type"`
	Joysticks  json.RawMessage `json:"joysticks,omitempty"`
	Leds       json.RawMessage `json:"leds,omitempty"`
	Difficulty string          `json:"difficulty,omitempty"`
}

type joystickFields struct {
	Joystick1 *int `json:"joystick1"`
	Joystick2 *int `json:"joystick2"`
	Joystick3 *int `json:"joystick3"`
}

type ledFields struct {
	Led1 *int `json:"led1"`
	Led2 *int `json:"led2"`
	Led3 *int `json:"led3"`
}

// ParseInbound decodes a wire message into a tagged variant. Unparseable
// data or a missing required field returns an error; a well-formed message
// of unrecognized type returns KindUnknown and no error.
func ParseInbound(data []byte) (Inbound, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Inbound{}, fmt.Errorf("parse message: %w", err)
	}
	if w.Type == "" {
		return Inbound{}, fmt.Errorf("message has no type")
	}

	switch Kind(w.Type) {
	case KindJoystickUpdate:
		vals, err := parseJoysticks(w.Joysticks)
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Kind: KindJoystickUpdate, Joysticks: vals}, nil

	case KindLedUpdate:
		vals, err := parseLeds(w.Leds)
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Kind: KindLedUpdate, Leds: vals}, nil

	case KindStateSnapshot:
		joys, err := parseJoysticks(w.Joysticks)
		if err != nil {
			return Inbound{}, err
		}
		// LED fields are optional in a snapshot.
		leds, _ := parseLeds(w.Leds)
		return Inbound{Kind: KindStateSnapshot, Joysticks: joys, Leds: leds}, nil

	case KindLedControl:
		vals, err := parseLeds(w.Leds)
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Kind: KindLedControl, Leds: vals}, nil

	case KindSetDifficulty:
		if w.Difficulty == "" {
			return Inbound{}, fmt.Errorf("set_difficulty missing difficulty")
		}
		return Inbound{Kind: KindSetDifficulty, Difficulty: w.Difficulty}, nil

	case KindReset:
		return Inbound{Kind: KindReset}, nil

	default:
		return Inbound{Kind: KindUnknown}, nil
	}
}

func parseJoysticks(raw json.RawMessage) ([ChannelCount]int, error) {
	var out [ChannelCount]int
	if len(raw) == 0 {
		return out, fmt.Errorf("missing joysticks field")
	}
	var f joystickFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return out, fmt.Errorf("parse joysticks: %w", err)
	}
	if f.Joystick1 == nil || f.Joystick2 == nil || f.Joystick3 == nil {
		return out, fmt.Errorf("joysticks missing a channel")
	}
	out[0], out[1], out[2] = *f.Joystick1, *f.Joystick2, *f.Joystick3
	return out, nil
}

func parseLeds(raw json.RawMessage) ([ChannelCount]int, error) {
	var out [ChannelCount]int
	if len(raw) == 0 {
		return out, fmt.Errorf("missing leds field")
	}
	var f ledFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return out, fmt.Errorf("parse leds: %w", err)
	}
	if f.Led1 != nil {
		out[0] = *f.Led1
	}
	if f.Led2 != nil {
		out[1] = *f.Led2
	}
	if f.Led3 != nil {
		out[2] = *f.Led3
	}
	return out, nil
}

// #endregion inbound

// #region outbound

type ledControlMsg struct {
	Type string `json:"type"`
	Leds struct {
		Led1 int `json:"led1"`
		Led2 int `json:"led2"`
		Led3 int `json:"led3"`
	} `json:"leds"`
}

// EncodeLedControl builds a led_control message, clamping each intensity to
// the device range.
func EncodeLedControl(leds [ChannelCount]int) []byte {
	var m ledControlMsg
	m.Type = string(KindLedControl)
	m.Leds.Led1 = clampLed(leds[0])
	m.Leds.Led2 = clampLed(leds[1])
	m.Leds.Led3 = clampLed(leds[2])
	data, _ := json.Marshal(m)
	return data
}

type pinLockedMsg struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
}

// EncodePinLocked builds a pin_locked event for the given channel (1-based).
func EncodePinLocked(channel int) []byte {
	data, _ := json.Marshal(pinLockedMsg{Type: "pin_locked", Channel: channel})
	return data
}

type sessionUnlockedMsg struct {
	Type      string `json:"type"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// EncodeSessionUnlocked builds the terminal success event.
func EncodeSessionUnlocked(elapsedMs int64) []byte {
	data, _ := json.Marshal(sessionUnlockedMsg{Type: "session_unlocked", ElapsedMs: elapsedMs})
	return data
}

type sessionResetMsg struct {
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
}

// EncodeSessionReset builds a session_reset notification carrying the new
// session's difficulty.
func EncodeSessionReset(difficulty string) []byte {
	data, _ := json.Marshal(sessionResetMsg{Type: "session_reset", Difficulty: difficulty})
	return data
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EncodeError builds an error notification for a rejected control command.
func EncodeError(message string) []byte {
	data, _ := json.Marshal(errorMsg{Type: "error", Message: message})
	return data
}

func clampLed(v int) int {
	if v < LedMin {
		return LedMin
	}
	if v > LedMax {
		return LedMax
	}
	return v
}

// #endregion outbound
