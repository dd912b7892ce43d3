package fql

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		kind      ValueKind
		wantValue any
		wantNull  bool
		wantErr   error
	}{
		// Numeric
		{name: "numeric: string to float64", value: "25", kind: KindNumeric, wantValue: 25.0},
		{name: "numeric: float64 passthrough", value: 42.5, kind: KindNumeric, wantValue: 42.5},
		{name: "numeric: int to float64", value: 100, kind: KindNumeric, wantValue: 100.0},
		{name: "numeric: int64 to float64", value: int64(999), kind: KindNumeric, wantValue: 999.0},
		{name: "numeric: uint8 to float64", value: uint8(7), kind: KindNumeric, wantValue: 7.0},
		{name: "numeric: json.Number", value: json.Number("12.5"), kind: KindNumeric, wantValue: 12.5},
		{name: "numeric: string with whitespace", value: "  42  ", kind: KindNumeric, wantValue: 42.0},
		{name: "numeric: negative string", value: "-100", kind: KindNumeric, wantValue: -100.0},
		{name: "numeric: scientific notation", value: "1e10", kind: KindNumeric, wantValue: 1e10},
		{name: "numeric: non-numeric string fails", value: "abc", kind: KindNumeric, wantErr: types.ErrCoercionFailed},
		{name: "numeric: mixed string fails", value: "123abc", kind: KindNumeric, wantErr: types.ErrCoercionFailed},
		{name: "numeric: empty string fails", value: "", kind: KindNumeric, wantErr: types.ErrCoercionFailed},
		{name: "numeric: whitespace-only string fails", value: "   ", kind: KindNumeric, wantErr: types.ErrCoercionFailed},
		{name: "numeric: boolean fails", value: true, kind: KindNumeric, wantErr: types.ErrCoercionFailed},
		{name: "numeric: array fails", value: []any{1.0}, kind: KindNumeric, wantErr: types.ErrCoercionFailed},
		{name: "numeric: nil returns null", value: nil, kind: KindNumeric, wantNull: true},

		// Text
		{name: "text: string passthrough", value: "hello", kind: KindText, wantValue: "hello"},
		{name: "text: integral float", value: 123.0, kind: KindText, wantValue: "123"},
		{name: "text: fractional float", value: 1.5, kind: KindText, wantValue: "1.5"},
		{name: "text: int", value: 42, kind: KindText, wantValue: "42"},
		{name: "text: bool", value: false, kind: KindText, wantValue: "false"},
		{name: "text: object fails", value: map[string]any{}, kind: KindText, wantErr: types.ErrCoercionFailed},
		{name: "text: array fails", value: []any{"a"}, kind: KindText, wantErr: types.ErrCoercionFailed},
		{name: "text: nil returns null", value: nil, kind: KindText, wantNull: true},

		// Boolean
		{name: "boolean: true", value: true, kind: KindBoolean, wantValue: true},
		{name: "boolean: false", value: false, kind: KindBoolean, wantValue: false},
		{name: "boolean: string fails", value: "true", kind: KindBoolean, wantErr: types.ErrCoercionFailed},
		{name: "boolean: number fails", value: 1.0, kind: KindBoolean, wantErr: types.ErrCoercionFailed},

		// Unknown
		{name: "unknown kind fails", value: "x", kind: KindUnknown, wantErr: types.ErrCoercionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Coerce(tt.value, tt.kind)
			if err != tt.wantErr {
				t.Fatalf("Coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if result.IsNull != tt.wantNull {
				t.Errorf("Coerce() IsNull = %v, want %v", result.IsNull, tt.wantNull)
			}
			if result.Value != tt.wantValue {
				t.Errorf("Coerce() Value = %#v, want %#v", result.Value, tt.wantValue)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		literal any
		want    ValueKind
	}{
		{literal: "x", want: KindText},
		{literal: 1.0, want: KindNumeric},
		{literal: 1, want: KindNumeric},
		{literal: true, want: KindBoolean},
		{literal: nil, want: KindUnknown},
		{literal: []any{}, want: KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.literal); got != tt.want {
			t.Errorf("KindOf(%#v) = %v, want %v", tt.literal, got, tt.want)
		}
	}
}
