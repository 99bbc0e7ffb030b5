// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config configures the objects used by the MetaSUB tools:
// the Wasabi bucket, the metadata tables, the Pangea endpoint, the
// Zurich SFTP server and the cluster-specific data directories. A
// configuration is called a profile.
//
// Packages declare named instances with Register, and each instance
// declares its parameters together with their defaults. A profile
// overrides parameters with param directives:
//
//	param wasabi bucket = "metasub"
//	param wasabi (
//		endpoint = "https://s3.eu-central-1.wasabisys.com"
//		threads = 8
//	)
//
// and derives new instances from existing ones with instance
// directives:
//
//	instance wasabi-scratch wasabi (
//		bucket = "metasub-scratch"
//	)
//
// Directives are interpreted top to bottom and later directives
// override earlier ones, so that a user profile may be loaded after
// a site profile. Parameters may also be set from the command line
// with -set instance.param=value.
package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/metasub/utils/errors"
)

var (
	globalsMu sync.Mutex
	globals   = make(map[string]func(*Constructor))
)

// Register registers a global instance. The configure function is
// invoked each time the instance is constructed by a profile; it
// declares the instance's parameters and must set Constructor.New.
// Register panics if an instance with the same name has already been
// registered. It is typically called from package init functions:
//
//	config.Register("pangea", func(constr *config.Constructor) {
//		endpoint := constr.String("endpoint", "https://pangea.gimmebio.com/api", "the API root")
//		constr.Doc = "the Pangea analysis platform"
//		constr.New = func() (interface{}, error) {
//			return pangea.New(*endpoint), nil
//		}
//	})
func Register(name string, configure func(*Constructor)) {
	globalsMu.Lock()
	defer globalsMu.Unlock()
	if globals[name] != nil {
		panic("config.Register: instance " + name + " has already been registered")
	}
	globals[name] = configure
}

// Constructor declares an instance's parameters and constructs its
// value.
type Constructor struct {
	// New instantiates the value provided by this instance.
	New func() (interface{}, error)
	// Doc describes the instance.
	Doc string

	params map[string]*param
	order  []string
}

type param struct {
	help string
	set  func(string) error
	get  func() string
}

func newConstructor() *Constructor {
	return &Constructor{params: make(map[string]*param)}
}

func (c *Constructor) define(name, help string, set func(string) error, get func() string) {
	if c.params[name] != nil {
		panic("config: parameter " + name + " already defined")
	}
	c.params[name] = &param{help: help, set: set, get: get}
	c.order = append(c.order, name)
}

// StringVar declares a string parameter stored in p.
func (c *Constructor) StringVar(p *string, name, value, help string) {
	*p = value
	c.define(name, help, func(s string) error {
		*p = s
		return nil
	}, func() string { return strconv.Quote(*p) })
}

// String declares a string parameter with a default value.
func (c *Constructor) String(name, value, help string) *string {
	p := new(string)
	c.StringVar(p, name, value, help)
	return p
}

// IntVar declares an integer parameter stored in p.
func (c *Constructor) IntVar(p *int, name string, value int, help string) {
	*p = value
	c.define(name, help, func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}, func() string { return strconv.Itoa(*p) })
}

// Int declares an integer parameter with a default value.
func (c *Constructor) Int(name string, value int, help string) *int {
	p := new(int)
	c.IntVar(p, name, value, help)
	return p
}

// BoolVar declares a boolean parameter stored in p.
func (c *Constructor) BoolVar(p *bool, name string, value bool, help string) {
	*p = value
	c.define(name, help, func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}, func() string { return strconv.FormatBool(*p) })
}

// Bool declares a boolean parameter with a default value.
func (c *Constructor) Bool(name string, value bool, help string) *bool {
	p := new(bool)
	c.BoolVar(p, name, value, help)
	return p
}

// DurationVar declares a duration parameter (e.g. "30s") stored in p.
func (c *Constructor) DurationVar(p *time.Duration, name string, value time.Duration, help string) {
	*p = value
	c.define(name, help, func(s string) error {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}, func() string { return strconv.Quote(p.String()) })
}

// Duration declares a duration parameter with a default value.
func (c *Constructor) Duration(name string, value time.Duration, help string) *time.Duration {
	p := new(time.Duration)
	c.DurationVar(p, name, value, help)
	return p
}

// An instance is a parsed instance clause: an optional parent and a
// set of parameter values.
type instance struct {
	name   string
	parent string
	params map[string]string
}

// Profile stores parameters and constructs instances from them.
type Profile struct {
	flagPaths  []string
	flagParams []string

	mu        sync.Mutex
	instances map[string]*instance
	cached    map[string]interface{}
}

// New creates an empty profile.
func New() *Profile {
	return &Profile{
		instances: make(map[string]*instance),
		cached:    make(map[string]interface{}),
	}
}

func (p *Profile) merge(inst *instance) {
	cur := p.instances[inst.name]
	if cur == nil {
		cur = &instance{name: inst.name, params: make(map[string]string)}
		p.instances[inst.name] = cur
	}
	if inst.parent != "" {
		cur.parent = inst.parent
	}
	for k, v := range inst.params {
		cur.params[k] = v
	}
}

// Set sets the parameter at path (instance.param) to value.
func (p *Profile) Set(path, value string) error {
	name, param, err := splitPath(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.merge(&instance{name: name, params: map[string]string{param: value}})
	return nil
}

// Get returns the value of the parameter at path (instance.param),
// as it would be rendered in a profile.
func (p *Profile) Get(path string) (string, bool) {
	name, pname, err := splitPath(path)
	if err != nil {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	constr, err := p.constructor(name, nil)
	if err != nil {
		return "", false
	}
	param := constr.params[pname]
	if param == nil {
		return "", false
	}
	return param.get(), true
}

// Parse parses a profile from r and merges it into p.
func (p *Profile) Parse(r io.Reader) error {
	insts, err := parse(r)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inst := range insts {
		p.merge(inst)
	}
	return nil
}

// ParseFile parses the profile at path and merges it into p.
func (p *Profile) ParseFile(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return errors.E(err, "config: open profile", path)
	}
	defer errors.CleanUp(f.Close, &err)
	if err := p.Parse(f); err != nil {
		return errors.E(err, "config: parse profile", path)
	}
	return nil
}

// constructor returns a configured constructor for the named
// instance, resolving derived instances through their parents.
func (p *Profile) constructor(name string, seen map[string]bool) (*Constructor, error) {
	if seen[name] {
		return nil, errors.E(errors.Invalid, "config: cycle in instance", name)
	}
	inst := p.instances[name]
	var constr *Constructor
	globalsMu.Lock()
	configure := globals[name]
	globalsMu.Unlock()
	switch {
	case configure != nil:
		constr = newConstructor()
		configure(constr)
	case inst != nil && inst.parent != "":
		if seen == nil {
			seen = make(map[string]bool)
		}
		seen[name] = true
		var err error
		if constr, err = p.constructor(inst.parent, seen); err != nil {
			return nil, err
		}
	default:
		return nil, errors.E(errors.NotExist, "config: no instance named", name)
	}
	if inst == nil {
		return constr, nil
	}
	for _, k := range sortedKeys(inst.params) {
		param := constr.params[k]
		if param == nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("config: instance %s has no parameter %s", name, k))
		}
		if err := param.set(inst.params[k]); err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("config: instance %s parameter %s", name, k), err)
		}
	}
	return constr, nil
}

// Instance constructs the named instance and stores it in ptr, which
// must be a pointer to a value assignable from the instance's type.
// Instances are constructed once per profile.
func (p *Profile) Instance(name string, ptr interface{}) error {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Ptr || pv.IsNil() {
		panic("config.Instance: ptr must be a non-nil pointer")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.cached[name]
	if !ok {
		constr, err := p.constructor(name, nil)
		if err != nil {
			return err
		}
		if constr.New == nil {
			return errors.E(errors.Invalid, "config: instance", name, "has no constructor")
		}
		if v, err = constr.New(); err != nil {
			return errors.E(err, "config: construct", name)
		}
		p.cached[name] = v
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		pv.Elem().Set(reflect.Zero(pv.Elem().Type()))
		return nil
	}
	if !rv.Type().AssignableTo(pv.Elem().Type()) {
		return errors.E(errors.Invalid, fmt.Sprintf("config: instance %s of type %s is not assignable to %s", name, rv.Type(), pv.Elem().Type()))
	}
	pv.Elem().Set(rv)
	return nil
}

// PrintTo writes the profile's effective parameters, in parseable
// form, to w.
func (p *Profile) PrintTo(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	globalsMu.Lock()
	names := make(map[string]bool)
	for name := range globals {
		names[name] = true
	}
	globalsMu.Unlock()
	for name := range p.instances {
		names[name] = true
	}
	for _, name := range sortedKeys(names) {
		constr, err := p.constructor(name, nil)
		if err != nil {
			return err
		}
		if inst := p.instances[name]; inst != nil && inst.parent != "" {
			fmt.Fprintf(w, "instance %s %s (\n", name, inst.parent)
		} else {
			fmt.Fprintf(w, "param %s (\n", name)
		}
		for _, k := range constr.order {
			param := constr.params[k]
			fmt.Fprintf(w, "\t%s = %s // %s\n", k, param.get(), param.help)
		}
		if _, err := fmt.Fprintln(w, ")"); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m interface{}) []string {
	keys := reflect.ValueOf(m).MapKeys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	sort.Strings(out)
	return out
}

var (
	appMu sync.Mutex
	app   *Profile
)

// Application returns the default application profile.
func Application() *Profile {
	appMu.Lock()
	defer appMu.Unlock()
	if app == nil {
		app = New()
	}
	return app
}

// SetApplication replaces the default application profile.
func SetApplication(p *Profile) {
	appMu.Lock()
	app = p
	appMu.Unlock()
}

// Instance constructs the named instance from the application profile.
func Instance(name string, ptr interface{}) error {
	return Application().Instance(name, ptr)
}
