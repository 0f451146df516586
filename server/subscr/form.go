package subscr

import (
	"html/template"
	"io"

	"golang.org/x/text/language"
)

// FormSubscribe is the name of the checkbox in the reply form.
const FormSubscribe = "bbp_anonymous_subscribe"

var checkboxTempl = template.Must(template.New("checkbox").Parse(`<p>
	<input name="{{.Name}}" id="{{.Name}}" type="checkbox" value="1"{{if .TabIndex}} tabindex="{{.TabIndex}}"{{end}} />
	<label for="{{.Name}}">{{.Label}}</label>
</p>
`))

// RenderCheckbox writes the "notify me" checkbox of the reply form. Nothing is written for
// authenticated visitors. When editing someone else's reply the label refers to the author.
func RenderCheckbox(w io.Writer, lang language.Tag, authenticated, editingOther bool, tabIndex int) error {
	if authenticated {
		return nil
	}

	label := msgNotifyMe
	if editingOther {
		label = msgNotifyAuthor
	}

	return checkboxTempl.Execute(w, map[string]interface{}{
		"Name":     FormSubscribe,
		"Label":    Translate(lang, label),
		"TabIndex": tabIndex,
	})
}
