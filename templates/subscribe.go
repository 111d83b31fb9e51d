package templates

// Subscribe button fragment. The form posts back to the widget endpoint and
// swaps itself with the response; without HelmJS it degrades to a full POST.

func GetSubscribeTemplate() string {
	return subscribeTemplate
}

var subscribeTemplate = `{{define "subscribe"}}<div class="sequoia-subscribe" id="sequoia-subscribe-{{.ID}}" data-state="{{.State}}"{{if .Hidden}} hidden{{end}}>
{{- if not .Hidden}}
  <form method="POST" action="/widget/subscribe" h-post h-target="#sequoia-subscribe-{{.ID}}" h-swap="outer" h-indicator="#sequoia-spinner-{{.ID}}">
    <input type="hidden" name="instance" value="{{.ID}}">
    <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
    <button class="sequoia-subscribe-button{{if .Subscribed}} sequoia-subscribe-button--success{{end}}" type="submit" part="button"{{if or .Loading .Subscribed}} disabled{{end}} aria-label="{{.ButtonLabel}}">
      {{if .Loading}}<span class="sequoia-loading-spinner"></span>{{else if .Subscribed}}{{icon "check"}}{{else}}<span id="sequoia-spinner-{{.ID}}" class="h-indicator"><span class="sequoia-loading-spinner"></span></span>{{icon "bluesky"}}{{end}}
      {{.ButtonLabel}}
    </button>
    {{if .Error}}<span class="sequoia-error-message" role="alert">{{.Error}}</span>{{end}}
  </form>
{{- end}}
</div>{{end}}`
