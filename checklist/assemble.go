package checklist

import "strings"

// DefaultHeader returns the documented header defaults. These reproduce the
// values historical templates expect when a spec workbook leaves a field
// blank; builds override them through configuration.
func DefaultHeader() Header {
	return Header{
		Repo:        "/workspaces/SOP_Build",
		WebRoot:     "/SOP_Stage",
		ImgFolder:   "../outputs/images/<SOP_ID>",
		TemplateTag: "v8 – injected",
	}
}

// Assemble merges a raw extracted key/value map into defaults, producing a
// complete Header. Keys are canonicalized through resolve (the header
// synonym vocabulary); only non-empty values override defaults. Raw keys
// that do not canonicalize become declared placeholder keys in Extra, where
// sheet-supplied values override any extras already present on defaults.
func Assemble(raw map[string]string, defaults Header, resolve func(string) (string, bool)) Header {
	h := defaults
	if len(defaults.Extra) > 0 {
		h.Extra = make(map[string]string, len(defaults.Extra))
		for k, v := range defaults.Extra {
			h.Extra[k] = v
		}
	}

	for k, v := range raw {
		v = strings.TrimSpace(v)
		canon, ok := resolve(k)
		if !ok {
			key := strings.TrimSpace(k)
			if key == "" {
				continue
			}
			if h.Extra == nil {
				h.Extra = make(map[string]string)
			}
			h.Extra[key] = v
			continue
		}
		if v == "" {
			continue
		}
		switch canon {
		case "name":
			h.Name = v
		case "id":
			h.ID = v
		case "entity":
			h.Entity = v
		case "repo":
			h.Repo = v
		case "webRoot":
			h.WebRoot = v
		case "runLabel":
			h.RunLabel = v
		case "imgFolder":
			h.ImgFolder = v
		case "templateTag":
			h.TemplateTag = v
		}
	}
	return h
}
