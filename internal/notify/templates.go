package notify

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// reconnectData feeds the reconnect-alert email templates.
type reconnectData struct {
	InstitutionName string
	AccountNames    []string
}

var reconnectHTML = htmltemplate.Must(htmltemplate.New("reconnect_html").Parse(`<html>
<body>
<p>Your connection to <strong>{{.InstitutionName}}</strong> needs to be reconnected.</p>
<p>The following accounts have stopped syncing:</p>
<ul>
{{range .AccountNames}}<li>{{.}}</li>
{{end}}</ul>
<p>Please sign in and reconnect the bank to resume automatic updates.</p>
</body>
</html>
`))

var reconnectText = texttemplate.Must(texttemplate.New("reconnect_text").Parse(`Your connection to {{.InstitutionName}} needs to be reconnected.

The following accounts have stopped syncing:
{{range .AccountNames}}  - {{.}}
{{end}}
Please sign in and reconnect the bank to resume automatic updates.
`))

// renderReconnectBodies produces the HTML and plain-text bodies for a
// reconnect alert.
func renderReconnectBodies(institutionName string, accountNames []string) (html, text string, err error) {
	data := reconnectData{InstitutionName: institutionName, AccountNames: accountNames}

	var htmlBuf, textBuf strings.Builder
	if err := reconnectHTML.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("render reconnect html: %w", err)
	}
	if err := reconnectText.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("render reconnect text: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}
