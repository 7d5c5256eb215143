package domophone

import (
	"errors"
	"reflect"
	"testing"
)

// TestParseCommand verifies decoding and validation of inbound commands.
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
		wantErr error
	}{
		{
			name:    "open door",
			payload: `{"identifier":"A1","command":"open_door"}`,
			want:    Command{Identifier: "A1", Name: CmdOpenDoor},
		},
		{
			name:    "close door",
			payload: `{"identifier":"A1","command":"close_door"}`,
			want:    Command{Identifier: "A1", Name: CmdCloseDoor},
		},
		{
			name:    "call to flat",
			payload: `{"identifier":"A1","command":"call_to_flat","flat_number":7}`,
			want:    Command{Identifier: "A1", Name: CmdCallToFlat, FlatNumber: 7},
		},
		{
			name:    "add keys",
			payload: `{"identifier":"A1","command":"add_keys","apartment":12,"keys":[1234,5678]}`,
			want:    Command{Identifier: "A1", Name: CmdAddKeys, Apartment: 12, Keys: []int{1234, 5678}},
		},
		{
			name:    "remove keys",
			payload: `{"identifier":"A1","command":"remove_keys","apartment":12,"keys":[1234]}`,
			want:    Command{Identifier: "A1", Name: CmdRemoveKeys, Apartment: 12, Keys: []int{1234}},
		},
		{
			name:    "make active",
			payload: `{"identifier":"A1","command":"make_active"}`,
			want:    Command{Identifier: "A1", Name: CmdMakeActive},
		},
		{
			name:    "make unactive",
			payload: `{"identifier":"A1","command":"make_unactive"}`,
			want:    Command{Identifier: "A1", Name: CmdUnactive},
		},
		{
			name:    "not json",
			payload: `open the door please`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing identifier",
			payload: `{"command":"open_door"}`,
			wantErr: ErrMissingIdentifier,
		},
		{
			name:    "missing command name",
			payload: `{"identifier":"A1"}`,
			wantErr: ErrMissingCommand,
		},
		{
			name:    "unknown command",
			payload: `{"identifier":"A1","command":"self_destruct"}`,
			wantErr: ErrUnknownCommand,
		},
		{
			name:    "call without flat number",
			payload: `{"identifier":"A1","command":"call_to_flat"}`,
			wantErr: ErrInvalidFields,
		},
		{
			name:    "add keys without apartment",
			payload: `{"identifier":"A1","command":"add_keys","keys":[1]}`,
			wantErr: ErrInvalidFields,
		},
		{
			name:    "add keys without keys",
			payload: `{"identifier":"A1","command":"add_keys","apartment":3}`,
			wantErr: ErrInvalidFields,
		},
		{
			name:    "zero key id",
			payload: `{"identifier":"A1","command":"add_keys","apartment":3,"keys":[0]}`,
			wantErr: ErrInvalidFields,
		},
		{
			name:    "negative key id",
			payload: `{"identifier":"A1","command":"remove_keys","apartment":3,"keys":[1234,-5]}`,
			wantErr: ErrInvalidFields,
		},
		{
			name:    "non-integer key rejected whole",
			payload: `{"identifier":"A1","command":"add_keys","apartment":3,"keys":[1,"badge"]}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "fractional flat number",
			payload: `{"identifier":"A1","command":"call_to_flat","flat_number":7.5}`,
			wantErr: ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.payload))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
