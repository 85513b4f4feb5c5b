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

package filter

import (
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"pagedtable/datatable"
)

const scriptTemplate = `package rowfilter

import (
	"strings"
	"time"
)

var _ = strings.Contains
var _ = time.Now

func Match(row map[string]interface{}) bool {
	%s
}
`

// Script is a Go predicate body interpreted with yaegi. The body sees
// `row`, a map from column id to the cell's raw value (nil for null),
// and must return a bool:
//
//	return row["age"].(int64) > 30 && strings.HasPrefix(row["lastName"].(string), "S")
type Script struct {
	body  string
	match func(map[string]interface{}) bool
	mu    sync.Mutex
}

// CompileScript compiles body. Syntax and type errors wrap
// datatable.ErrInvalidFilter.
func CompileScript(body string) (*Script, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib: %w", err)
	}

	if _, err := i.Eval(fmt.Sprintf(scriptTemplate, body)); err != nil {
		return nil, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
	}
	v, err := i.Eval("rowfilter.Match")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
	}
	fn, ok := v.Interface().(func(map[string]interface{}) bool)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected predicate type %s", datatable.ErrInvalidFilter, v.Type())
	}
	return &Script{body: body, match: fn}, nil
}

// Evaluate implements datatable.Filter. A panic inside the script, such
// as a failed type assertion, is returned as an error.
func (s *Script) Evaluate(row datatable.Record, columnIDs []string) (ok bool, err error) {
	vars := make(map[string]interface{}, len(columnIDs))
	for i, id := range columnIDs {
		if i >= len(row) {
			break
		}
		if row[i].IsNull {
			vars[id] = nil
			continue
		}
		vars[id] = row[i].Raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("%w: script panicked: %v", datatable.ErrInvalidFilter, r)
		}
	}()
	return s.match(vars), nil
}

// Description implements datatable.Filter.
func (s *Script) Description() string {
	return "script: " + s.body
}
