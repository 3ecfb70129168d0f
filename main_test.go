package main

import (
	"reflect"
	"strings"
	"testing"

	"live-transcriber/internal/bootstrap"
)

// lifecycle methods are called by the Wails runtime, not the page.
var lifecycle = map[string]bool{"Run": true, "Startup": true, "Shutdown": true}

// TestFrontendCallsEveryBoundMethod keeps the embedded page in step with the
// methods the desktop app binds.
func TestFrontendCallsEveryBoundMethod(t *testing.T) {
	page, err := appAssets.ReadFile("frontend/index.html")
	if err != nil {
		t.Fatalf("read embedded page: %v", err)
	}
	html := string(page)

	appType := reflect.TypeOf(&bootstrap.App{})
	checked := 0
	for i := 0; i < appType.NumMethod(); i++ {
		name := appType.Method(i).Name
		if lifecycle[name] {
			continue
		}
		checked++
		if !strings.Contains(html, "app()."+name+"(") {
			t.Errorf("bound method %s is never called by frontend/index.html", name)
		}
	}
	if checked == 0 {
		t.Fatal("no bound methods found")
	}
}

// TestFrontendListensForState checks the page subscribes to state pushes.
func TestFrontendListensForState(t *testing.T) {
	page, err := appAssets.ReadFile("frontend/index.html")
	if err != nil {
		t.Fatalf("read embedded page: %v", err)
	}
	if !strings.Contains(string(page), `EventsOn("`+bootstrap.StateEvent+`"`) {
		t.Fatalf("page does not subscribe to %s", bootstrap.StateEvent)
	}
}
