// Package validate defines an interface which must be implemented by credential validators.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"text/template"
)

// Validator checks subscriber's credentials, like email.
type Validator interface {
	// Init initializes the validator.
	Init(jsonconf string) error

	// IsInitialized returns true if the validator is initialized.
	IsInitialized() bool

	// PreCheck validates the format of the credential without contacting the owner.
	// Returns the credential with insignificant whitespace removed.
	PreCheck(cred string) (string, error)
}

// ValidateHostURL checks that the URL is absolute and has no fragment. Returns normalized URL.
func ValidateHostURL(origUrl string) (string, error) {
	hostUrl, err := url.Parse(origUrl)
	if err != nil {
		return "", err
	}
	if !hostUrl.IsAbs() {
		return "", errors.New("host_url must be absolute")
	}
	if hostUrl.Hostname() == "" {
		return "", errors.New("invalid host_url")
	}
	if hostUrl.Fragment != "" {
		return "", errors.New("fragment is not allowed in host_url")
	}
	if hostUrl.Path == "" {
		hostUrl.Path = "/"
	}
	return hostUrl.String(), nil
}

// ExecuteTemplate renders named parts of the template. If parts is nil, the whole template is rendered
// into the "" key.
func ExecuteTemplate(template *template.Template, parts []string, params map[string]interface{}) (map[string]string, error) {
	content := map[string]string{}
	buffer := new(bytes.Buffer)

	if parts == nil {
		if err := template.Execute(buffer, params); err != nil {
			return nil, err
		}
		content[""] = buffer.String()
	} else {
		for _, part := range parts {
			buffer.Reset()
			if templBody := template.Lookup(part); templBody != nil {
				if err := templBody.Execute(buffer, params); err != nil {
					return nil, err
				}
			}
			content[part] = buffer.String()
		}
	}

	return content, nil
}

// ReadTemplateFile expands the path template for the given language and parses the file.
func ReadTemplateFile(pathTempl *template.Template, lang string) (*template.Template, string, error) {
	buffer := bytes.Buffer{}
	err := pathTempl.Execute(&buffer, map[string]interface{}{"Language": lang})
	path := buffer.String()
	if err != nil {
		return nil, path, fmt.Errorf("reading %s: %w", path, err)
	}

	templ, err := template.ParseFiles(path)
	return templ, path, err
}
