package export

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"go.uber.org/multierr"
)

func attrMap(attrs []Attr) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(attrs))
	values := make(map[string]any, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Name)
		values[a.Name] = a.Value
	}
	return util.NewOrderedMap(keys, values)
}

// WriteFile persists the dataset as a classic-model NetCDF file.
func WriteFile(path string, ds *Dataset) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("creating netcdf %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, cw.Close())
	}()

	global, err := attrMap(ds.Global)
	if err != nil {
		return fmt.Errorf("netcdf global attributes: %w", err)
	}
	if err := cw.AddAttributes(global); err != nil {
		return fmt.Errorf("netcdf global attributes: %w", err)
	}
	for i := range ds.Vars {
		v := &ds.Vars[i]
		attrs, err := attrMap(v.Attrs)
		if err != nil {
			return fmt.Errorf("netcdf variable %s: %w", v.Name, err)
		}
		err = cw.AddVar(v.Name, api.Variable{
			Values:     v.Values,
			Dimensions: v.Dimensions,
			Attributes: attrs,
		})
		if err != nil {
			return fmt.Errorf("netcdf variable %s: %w", v.Name, err)
		}
	}
	return nil
}

// ReadVar is one variable read back from a file.
type ReadVar struct {
	Values any
	Attrs  map[string]any
}

// File is the generic read-back form of an exported proxy file.
type File struct {
	Global map[string]any
	// VarNames preserves file order, Vars is the lookup.
	VarNames []string
	Vars     map[string]ReadVar
}

// GlobalString returns a global attribute as a string, "" when absent.
func (f *File) GlobalString(name string) string {
	if v, ok := f.Global[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GlobalFloat returns a numeric global attribute. ok is false when the
// attribute is absent or not numeric.
func (f *File) GlobalFloat(name string) (float64, bool) {
	v, ok := f.Global[name]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// ToFloat widens any scalar numeric the NetCDF reader can hand back, single
// element slices included, attributes round-trip that way.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case []float64:
		if len(n) == 1 {
			return n[0], true
		}
	case []float32:
		if len(n) == 1 {
			return float64(n[0]), true
		}
	}
	return 0, false
}

// Floats returns the named variable as a float64 series, nil when absent or
// of another type.
func (f *File) Floats(name string) []float64 {
	v, ok := f.Vars[name]
	if !ok {
		return nil
	}
	switch vals := v.Values.(type) {
	case []float64:
		return vals
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out
	}
	return nil
}

// Strings returns the named variable as a string series, nil when absent.
func (f *File) Strings(name string) []string {
	if v, ok := f.Vars[name]; ok {
		if vals, ok := v.Values.([]string); ok {
			return vals
		}
	}
	return nil
}

func mapOf(am api.AttributeMap) map[string]any {
	out := make(map[string]any)
	if am == nil {
		return out
	}
	for _, key := range am.Keys() {
		if v, ok := am.Get(key); ok {
			out[key] = v
		}
	}
	return out
}

// ReadFile loads a previously exported proxy file back into generic form.
func ReadFile(path string) (*File, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening netcdf %s: %w", path, err)
	}
	defer g.Close()

	f := &File{
		Global: mapOf(g.Attributes()),
		Vars:   make(map[string]ReadVar),
	}
	for _, name := range g.ListVariables() {
		vr, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("reading netcdf variable %s: %w", name, err)
		}
		f.VarNames = append(f.VarNames, name)
		f.Vars[name] = ReadVar{Values: vr.Values, Attrs: mapOf(vr.Attributes)}
	}
	return f, nil
}
