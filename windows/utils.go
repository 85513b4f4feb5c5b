// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package windows

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"pagedtable/adapters/deltasharing"
)

// createTimeoutContext derives a context for catalog calls from parent.
// A non-positive timeout uses the catalog default.
func createTimeoutContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = deltasharing.DefaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// shiftPressed reports whether shift is held on desktop drivers.
func shiftPressed() bool {
	app := fyne.CurrentApp()
	if app == nil {
		return false
	}
	if d, ok := app.Driver().(desktop.Driver); ok {
		return d.CurrentKeyModifiers()&fyne.KeyModifierShift != 0
	}
	return false
}

// tabTitle shortens a file path or table URL for a tab label.
func tabTitle(name string) string {
	if i := strings.LastIndex(name, "#"); i >= 0 {
		name = name[i+1:]
	}
	if strings.ContainsAny(name, `/\`) {
		name = filepath.Base(name)
	}
	const max = 32
	if len(name) > max {
		return name[:max-3] + "..."
	}
	return name
}
