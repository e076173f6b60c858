package events

import (
	"errors"
	"testing"
)

func TestDecodeRoundTripsEveryKind(t *testing.T) {
	cases := []struct {
		kind string
		data string
	}{
		{KindDeviceRegister, `{"id":"d1","status":"idle"}`},
		{KindDeviceUpdate, `{"id":"d1","status":"busy"}`},
		{KindDeviceOffline, `{"id":"d1"}`},
		{KindModelRegister, `{"id":"m1","name":"kws","path":"/m/kws.fbz","backend":"akida"}`},
		{KindModelLoaded, `{"id":"m1","loaded":false}`},
		{KindSessionStart, `{"id":"s1","deviceId":"d1","modelId":"m1"}`},
		{KindSessionEnd, `{"id":"s1"}`},
		{KindSyncFull, `{"devices":{},"models":{},"sessions":{}}`},
	}

	for _, tc := range cases {
		ev, err := Decode(tc.kind, []byte(tc.data))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.kind, err)
		}
		if ev.Kind() != tc.kind {
			t.Fatalf("decode %s: kind mismatch %s", tc.kind, ev.Kind())
		}
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode("device.selfdestruct", []byte(`{"id":"d1"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDecodeRejectsMissingID(t *testing.T) {
	for _, kind := range []string{
		KindDeviceRegister,
		KindDeviceUpdate,
		KindDeviceOffline,
		KindModelRegister,
		KindModelLoaded,
		KindSessionStart,
		KindSessionEnd,
	} {
		if _, err := Decode(kind, []byte(`{}`)); !errors.Is(err, ErrMissingID) {
			t.Fatalf("%s: expected ErrMissingID, got %v", kind, err)
		}
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := Decode(KindDeviceUpdate, []byte(`{"id":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeEmptyPayloadIsSyncableOnlyForSyncFull(t *testing.T) {
	if _, err := Decode(KindSyncFull, nil); err != nil {
		t.Fatalf("sync.full with empty payload: %v", err)
	}
	if _, err := Decode(KindDeviceOffline, nil); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestSyncFullSnapshotNormalizesNilCollections(t *testing.T) {
	snap := SyncFull{}.Snapshot()
	if snap.Devices == nil || snap.Models == nil || snap.Sessions == nil {
		t.Fatal("expected all collections allocated")
	}
}
