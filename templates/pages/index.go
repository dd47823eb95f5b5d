package pages

func pageTitle(messages map[string]string) string {
	if title := messages["app.title"]; title != "" {
		return title
	}
	return "Records"
}
