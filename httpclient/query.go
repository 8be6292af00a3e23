package httpclient

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// BuildGetQuery appends params to rawURL. The separator is "?" when the URL has
// none, nothing when it already ends in "?" or "&", and "&" otherwise. An empty
// encoding leaves rawURL untouched.
//
// params may be a pre-encoded string, url.Values, a string-keyed map (nested maps
// and slices use bracket notation, e.g. a[b]=1), or a struct with `url` tags.
func BuildGetQuery(rawURL string, params any) (string, error) {
	qs, err := EncodeQuery(params)
	if err != nil {
		return rawURL, err
	}
	if qs == "" {
		return rawURL, nil
	}

	switch {
	case !strings.Contains(rawURL, "?"):
		return rawURL + "?" + qs, nil
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		return rawURL + qs, nil
	default:
		return rawURL + "&" + qs, nil
	}
}

// EncodeQuery form-encodes params. Keys are emitted in sorted order.
func EncodeQuery(params any) (string, error) {
	switch v := params.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case url.Values:
		return v.Encode(), nil
	case map[string]string:
		values := make(url.Values, len(v))
		for key, val := range v {
			values.Set(key, val)
		}
		return values.Encode(), nil
	case map[string]any:
		values := make(url.Values, len(v))
		if err := flattenQuery(values, "", v); err != nil {
			return "", err
		}
		return values.Encode(), nil
	}

	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		values, err := query.Values(params)
		if err != nil {
			return "", NewArgumentError(err.Error(), "params")
		}
		return values.Encode(), nil
	}

	return "", NewArgumentError(fmt.Sprintf("unsupported query type %T", params), "params")
}

func flattenQuery(values url.Values, prefix string, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "[" + k + "]"
		}
		if err := flattenValue(values, name, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func flattenValue(values url.Values, name string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		return flattenQuery(values, name, v)
	case []any:
		for i, item := range v {
			if err := flattenValue(values, name+"["+strconv.Itoa(i)+"]", item); err != nil {
				return err
			}
		}
		return nil
	case []string:
		for i, item := range v {
			values.Add(name+"["+strconv.Itoa(i)+"]", item)
		}
		return nil
	}

	s, ok := scalarString(value)
	if !ok {
		return NewArgumentError(fmt.Sprintf("unsupported query value %T", value), name)
	}
	values.Add(name, s)
	return nil
}

// scalarString renders scalars the way form encoders do: booleans become 1 or 0.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case bool:
		if v {
			return "1", true
		}
		return "0", true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
