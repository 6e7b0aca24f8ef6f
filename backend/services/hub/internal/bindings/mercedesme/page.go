package mercedesme

import "html/template"

var authorizePage = template.Must(template.New("authorize").Parse(`<html>
<body>
Get your access token for the Mercedes me binding<br>
<a href="{{.}}">Start Authorization</a>
</body>
</html>
`))
