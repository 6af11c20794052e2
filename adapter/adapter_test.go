package adapter

import (
	"testing"

	"github.com/user-none/emarc/emu"
)

func TestSystemInfo_PerBoard(t *testing.T) {
	reels := (&Factory{Board: emu.BoardReels}).SystemInfo()
	if reels.ScreenWidth != 512 || reels.MaxScreenHeight != 240 {
		t.Errorf("reels: expected 512x240, got %dx%d", reels.ScreenWidth, reels.MaxScreenHeight)
	}
	if reels.Players != 1 {
		t.Errorf("reels: expected 1 player, got %d", reels.Players)
	}
	if reels.SerializeSize != emu.SerializeSize(emu.BoardReels) {
		t.Errorf("reels: serialize size mismatch")
	}

	konami := (&Factory{Board: emu.BoardKonami}).SystemInfo()
	if konami.ScreenWidth != 288 || konami.MaxScreenHeight != 224 {
		t.Errorf("konami: expected 288x224, got %dx%d", konami.ScreenWidth, konami.MaxScreenHeight)
	}
	if konami.Players != 2 {
		t.Errorf("konami: expected 2 players, got %d", konami.Players)
	}

	neo := (&Factory{Board: emu.BoardNeoGeo}).SystemInfo()
	if neo.ScreenWidth != 320 || neo.MaxScreenHeight != 224 {
		t.Errorf("neogeo: expected 320x224, got %dx%d", neo.ScreenWidth, neo.MaxScreenHeight)
	}
	if neo.Players != 2 {
		t.Errorf("neogeo: expected 2 players, got %d", neo.Players)
	}
}

func TestSystemInfo_ButtonIDsUnique(t *testing.T) {
	for _, b := range []emu.Board{emu.BoardReels, emu.BoardKonami, emu.BoardNeoGeo} {
		seen := map[int]string{}
		for _, btn := range (&Factory{Board: b}).SystemInfo().Buttons {
			id := int(btn.ID)
			if id < 4 {
				t.Errorf("%s: button %s overlaps the direction bits", b, btn.Name)
			}
			if prev, ok := seen[id]; ok {
				t.Errorf("%s: %s and %s share ID %d", b, prev, btn.Name, id)
			}
			seen[id] = btn.Name
		}
	}
}

func TestCreateEmulator(t *testing.T) {
	f := &Factory{Board: emu.BoardReels}

	if _, err := f.CreateEmulator(nil, emu.DefaultRegion()); err == nil {
		t.Error("expected error for empty ROM")
	}

	e, err := f.CreateEmulator(make([]byte, emu.BoardReels.Layout().Size()), emu.DefaultRegion())
	if err != nil {
		t.Fatalf("CreateEmulator: %v", err)
	}
	m, ok := e.(*emu.Machine)
	if !ok {
		t.Fatalf("expected *emu.Machine, got %T", e)
	}
	if m.Board() != emu.BoardReels {
		t.Errorf("expected reels board, got %s", m.Board())
	}
}
