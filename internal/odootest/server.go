// Package odootest runs an in-process imitation of an Odoo server's XML-RPC API for
// tests. It serves the "common" and "object" endpoints, evaluates filters in prefix
// notation over in-memory records, and counts every call it receives.
package odootest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"clo/cli/internal/types"
	"clo/cli/internal/xmlrpc"
)

// Database is the database name the server accepts by default.
const Database = "odoo"

// Record is one row of a model.
type Record = map[string]any

// User is an account that can authenticate.
type User struct {
	ID       int
	Password string
}

// Model is an in-memory collection.
type Model struct {
	Description string
	Info        string
	Fields      map[string]map[string]any
	Records     []Record
}

// Server is the fake. Exported fields may be changed before the first call.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	Database string
	Users    map[string]User
	Models   map[string]*Model
	// Faults makes "model.method" answer with the given fault.
	Faults map[string]*xmlrpc.Fault
	// Status makes an endpoint path ("/xmlrpc/2/object") answer with an HTTP status.
	Status map[string]int

	calls      map[string]int
	kwargs     map[string]map[string]any
	cookieHits int
	nextID     int
}

// New starts a server holding res.users (admin and demo) and res.partner.
func New() *Server {
	s := &Server{
		Database: Database,
		Users: map[string]User{
			"admin": {ID: 2, Password: "admin"},
			"demo":  {ID: 6, Password: "demo"},
		},
		Models: map[string]*Model{
			"res.users": {
				Description: "User",
				Info:        "Users of the application",
				Fields: map[string]map[string]any{
					"login": {"string": "Login", "type": "char", "help": "Used to log into the system", "exportable": true},
					"name":  {"string": "Name", "type": "char", "exportable": true},
					"email": {"string": "Email", "type": "char", "exportable": true},
					"password": {"string": "Password", "type": "char", "exportable": false},
				},
				Records: []Record{
					{"id": 2, "login": "admin", "name": "Mitchell Admin", "email": "admin@example.com"},
					{"id": 6, "login": "demo", "name": "Marc Demo", "email": "mark.brown23@example.com"},
					{"id": 7, "login": "portal", "name": "Joel Willis", "email": "joel.willis63@example.com"},
				},
			},
			"res.partner": {
				Description: "Contact",
				Fields: map[string]map[string]any{
					"name": {"string": "Name", "type": "char", "exportable": true},
				},
				Records: []Record{
					{"id": 1, "name": "YourCompany"},
				},
			},
		},
		Faults: map[string]*xmlrpc.Fault{},
		Status: map[string]int{},
		calls:  map[string]int{},
		nextID: 100,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Instance returns the server URL.
func (s *Server) Instance() types.URL {
	return types.URL(s.URL)
}

// Calls returns how often key was called. Keys are "common.<method>" and
// "object.<model>.<method>".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Kwargs returns the keyword arguments of the latest call to key.
func (s *Server) Kwargs(key string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kwargs[key]
}

// TotalCalls returns the number of calls received on any endpoint.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// CookieHits returns how many requests replayed the session cookie.
func (s *Server) CookieHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookieHits
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := r.Cookie("session_id"); err == nil {
		s.cookieHits++
	} else {
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "fake-session", Path: "/"})
	}
	if code, ok := s.Status[r.URL.Path]; ok {
		w.Header().Set("X-Odoo-Test", "forced")
		http.Error(w, http.StatusText(code), code)
		return
	}

	method, params, err := xmlrpc.DecodeCall(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result any
	var fault *xmlrpc.Fault
	switch r.URL.Path {
	case "/xmlrpc/2/common":
		s.calls["common."+method]++
		result, fault = s.common(method, params)
	case "/xmlrpc/2/object":
		result, fault = s.object(method, params)
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	if fault != nil {
		_ = xmlrpc.EncodeFault(w, fault)
		return
	}
	_ = xmlrpc.EncodeResponse(w, result)
}

func (s *Server) common(method string, params []any) (any, *xmlrpc.Fault) {
	switch method {
	case "version":
		return map[string]any{
			"server_version":      "17.0",
			"server_version_info": []any{17, 0, 0, "final", 0, ""},
			"server_serie":        "17.0",
			"protocol_version":    1,
		}, nil
	case "authenticate":
		if len(params) != 4 {
			return nil, &xmlrpc.Fault{Code: 1, String: "authenticate() takes 4 arguments"}
		}
		db, _ := params[0].(string)
		login, _ := params[1].(string)
		password, _ := params[2].(string)
		if u, ok := s.Users[login]; ok && db == s.Database && u.Password == password {
			return u.ID, nil
		}
		return false, nil
	}
	return nil, &xmlrpc.Fault{Code: 1, String: fmt.Sprintf("method %q not found", method)}
}

func (s *Server) object(method string, params []any) (any, *xmlrpc.Fault) {
	if method != "execute_kw" || len(params) < 5 {
		return nil, &xmlrpc.Fault{Code: 1, String: "expected execute_kw(db, uid, password, model, method, args, kwargs)"}
	}
	db, _ := params[0].(string)
	uid, _ := params[1].(int)
	password, _ := params[2].(string)
	model, _ := params[3].(string)
	name, _ := params[4].(string)
	var args []any
	if len(params) > 5 {
		args, _ = params[5].([]any)
	}
	kwargs := map[string]any{}
	if len(params) > 6 {
		if kw, ok := params[6].(map[string]any); ok {
			kwargs = kw
		}
	}
	s.calls["object."+model+"."+name]++
	if s.kwargs == nil {
		s.kwargs = map[string]map[string]any{}
	}
	s.kwargs["object."+model+"."+name] = kwargs

	if !s.authorized(db, uid, password) {
		return nil, &xmlrpc.Fault{Code: 3, String: "Access Denied"}
	}
	if f, ok := s.Faults[model+"."+name]; ok {
		return nil, f
	}

	m, ok := s.Models[model]
	if model == "ir.model" {
		m, ok = s.directory(), true
	}
	if !ok {
		return nil, &xmlrpc.Fault{Code: 1, String: missingModel(model)}
	}

	switch name {
	case "search":
		recs, err := filter(m.Records, args)
		if err != nil {
			return nil, err
		}
		recs = page(order(recs, kwargs["order"]), kwargs)
		ids := make([]any, len(recs))
		for i, r := range recs {
			ids[i] = r["id"]
		}
		return ids, nil
	case "search_count":
		recs, err := filter(m.Records, args)
		if err != nil {
			return nil, err
		}
		n := len(recs)
		if limit, ok := kwargs["limit"].(int); ok && limit < n {
			n = limit
		}
		return n, nil
	case "search_read":
		recs, err := filter(m.Records, args)
		if err != nil {
			return nil, err
		}
		return project(page(order(recs, kwargs["order"]), kwargs), kwargs["fields"]), nil
	case "read":
		ids := ints(first(args))
		var recs []Record
		for _, r := range m.Records {
			if ids[r["id"].(int)] {
				recs = append(recs, r)
			}
		}
		fields := kwargs["fields"]
		if fields == nil && len(args) > 1 {
			fields = args[1]
		}
		return project(recs, fields), nil
	case "write":
		if len(args) < 2 {
			return nil, &xmlrpc.Fault{Code: 1, String: "write() missing values"}
		}
		ids := ints(args[0])
		vals, _ := args[1].(map[string]any)
		for _, r := range m.Records {
			if ids[r["id"].(int)] {
				for k, v := range vals {
					r[k] = v
				}
			}
		}
		return true, nil
	case "create":
		switch v := first(args).(type) {
		case map[string]any:
			return s.create(m, v), nil
		case []any:
			out := make([]any, 0, len(v))
			for _, item := range v {
				vals, _ := item.(map[string]any)
				out = append(out, s.create(m, vals))
			}
			return out, nil
		}
		return nil, &xmlrpc.Fault{Code: 1, String: "create() expects values"}
	case "unlink":
		ids := ints(first(args))
		kept := m.Records[:0]
		for _, r := range m.Records {
			if !ids[r["id"].(int)] {
				kept = append(kept, r)
			}
		}
		m.Records = kept
		return true, nil
	case "fields_get":
		attrs := strs(kwargs["attributes"])
		out := map[string]any{}
		for field, meta := range m.Fields {
			entry := map[string]any{"name": field}
			for k, v := range meta {
				if len(attrs) == 0 || attrs[k] {
					entry[k] = v
				}
			}
			out[field] = entry
		}
		return out, nil
	}
	return nil, &xmlrpc.Fault{Code: 1, String: fmt.Sprintf("The method '%s' does not exist on the model '%s'", name, model)}
}

func (s *Server) authorized(db string, uid int, password string) bool {
	if db != s.Database {
		return false
	}
	for _, u := range s.Users {
		if u.ID == uid && u.Password == password {
			return true
		}
	}
	return false
}

func (s *Server) create(m *Model, vals map[string]any) int {
	s.nextID++
	rec := Record{"id": s.nextID}
	for k, v := range vals {
		rec[k] = v
	}
	m.Records = append(m.Records, rec)
	return s.nextID
}

func (s *Server) directory() *Model {
	names := make([]string, 0, len(s.Models))
	for name := range s.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	d := &Model{Description: "Models"}
	for i, name := range names {
		m := s.Models[name]
		d.Records = append(d.Records, Record{
			"id": i + 1, "model": name, "name": m.Description, "display_name": m.Description, "info": m.Info,
		})
	}
	return d
}

// missingModel renders the chained traceback the server sends for unknown models.
func missingModel(model string) string {
	return fmt.Sprintf(`Traceback (most recent call last):
  File "/opt/odoo/odoo/api.py", line 886, in get
    return self.registry[model_name]
  File "/opt/odoo/odoo/modules/registry.py", line 213, in __getitem__
    return self.models[model_name]
KeyError: '%[1]s'

During handling of the above exception, another exception occurred:

Traceback (most recent call last):
  File "/opt/odoo/odoo/service/model.py", line 56, in execute_kw
    return execute(db, uid, obj, method, *args, **kw or {})
  File "/opt/odoo/odoo/service/model.py", line 83, in execute
    recs = odoo.api.Environment(cr, uid, {}).get(obj)
KeyError: 'Object %[1]s doesn't exist'
`, model)
}

func first(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func ints(v any) map[int]bool {
	out := map[int]bool{}
	switch x := v.(type) {
	case int:
		out[x] = true
	case []any:
		for _, item := range x {
			if n, ok := item.(int); ok {
				out[n] = true
			}
		}
	}
	return out
}

func strs(v any) map[string]bool {
	out := map[string]bool{}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				out[s] = true
			}
		}
	}
	return out
}

func project(recs []Record, fields any) []any {
	want := strs(fields)
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		row := map[string]any{"id": r["id"]}
		for k, v := range r {
			if len(want) == 0 || want[k] {
				row[k] = v
			}
		}
		out = append(out, row)
	}
	return out
}

func order(recs []Record, by any) []Record {
	o, _ := by.(string)
	if o == "" {
		return recs
	}
	parts := strings.Fields(o)
	field, desc := parts[0], len(parts) > 1 && strings.EqualFold(parts[1], "desc")
	sorted := append([]Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := fmt.Sprint(sorted[i][field]), fmt.Sprint(sorted[j][field])
		if desc {
			return a > b
		}
		return a < b
	})
	return sorted
}

func page(recs []Record, kwargs map[string]any) []Record {
	if offset, ok := kwargs["offset"].(int); ok && offset > 0 {
		if offset >= len(recs) {
			return nil
		}
		recs = recs[offset:]
	}
	if limit, ok := kwargs["limit"].(int); ok && limit >= 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}
