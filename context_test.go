package uac

import "testing"

func TestCreateOwnsPumpGoroutine(t *testing.T) {
	ctx := Create()
	if !ctx.owned {
		t.Fatal("expected Create to return an owned context")
	}
	if !ctx.alive.Load() {
		t.Fatal("expected a freshly created context to be alive")
	}
	ctx.Close()
	if ctx.alive.Load() {
		t.Fatal("expected Close to mark the context dead")
	}
}

func TestCreateSharedDoesNotOwnAGoroutine(t *testing.T) {
	ctx := CreateShared()
	if ctx.owned {
		t.Fatal("expected CreateShared to return an unowned context")
	}
	if ctx.done != nil {
		t.Fatal("expected an unowned context to have no done channel")
	}
	ctx.Close() // must not panic by closing a nil channel
	if ctx.alive.Load() {
		t.Fatal("expected Close to mark the context dead")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := Create()
	ctx.Close()
	ctx.Close() // second call must not panic by double-closing done
}
