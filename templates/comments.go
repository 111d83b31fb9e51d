package templates

// Comments fragment. One entry point renders every widget state; the thread
// list repeats "comment" for each flattened entry.

func GetCommentsTemplates() string {
	return commentsTemplate + commentTemplate
}

var commentsTemplate = `{{define "comments"}}<div class="sequoia-comments-container" id="sequoia-comments-{{.ID}}" data-state="{{.State}}"{{if .Hidden}} hidden{{end}}>
{{- if eq .State "loading"}}
  <div class="sequoia-loading" h-get="{{.ReloadURL}}" h-trigger="load delay:1s" h-target="#sequoia-comments-{{.ID}}" h-swap="outer">
    <span class="sequoia-loading-spinner"></span>
    Loading comments...
  </div>
{{- else if eq .State "no-document"}}
  {{if not .Hidden}}<div class="sequoia-warning">
    No document found. Add a <code>&lt;link rel="site.standard.document" href="at://..."&gt;</code> tag to your page.
  </div>{{end}}
{{- else if eq .State "no-comments-enabled"}}
  <div class="sequoia-empty">
    Comments are not enabled for this post.
  </div>
{{- else if eq .State "error"}}
  <div class="sequoia-error" role="alert">
    Failed to load comments: {{.Message}}
  </div>
{{- else}}
  <div class="sequoia-comments-header">
    <h3 class="sequoia-comments-title">{{.Title}}</h3>
    <a href="{{.PostURL}}" target="_blank" rel="noopener noreferrer" class="sequoia-reply-button">
      {{icon "bluesky"}}
      Reply on Bluesky
    </a>
  </div>
  {{if eq .State "empty"}}<div class="sequoia-empty">
    No comments yet. Be the first to reply on Bluesky!
  </div>{{else}}<div class="sequoia-comments-list">
    {{range .Threads}}<div class="sequoia-thread">{{range .}}{{template "comment" .}}{{end}}</div>
    {{end}}
  </div>{{end}}
{{- end}}
</div>{{end}}`

var commentTemplate = `{{define "comment"}}
<div class="sequoia-comment">
  <div class="sequoia-comment-avatar-column">
    {{if .Avatar}}<img class="sequoia-comment-avatar" src="{{.Avatar}}" alt="{{.DisplayName}}" loading="lazy">{{else}}<div class="sequoia-comment-avatar-placeholder">{{.Initials}}</div>{{end}}
    {{if .ThreadLine}}<div class="sequoia-thread-line"></div>{{end}}
  </div>
  <div class="sequoia-comment-content">
    <div class="sequoia-comment-header">
      <a href="{{.ProfileURL}}" target="_blank" rel="noopener noreferrer" class="sequoia-comment-author">{{.DisplayName}}</a>
      <span class="sequoia-comment-handle">@{{.Handle}}</span>
      <a href="{{.PostURL}}" target="_blank" rel="noopener noreferrer" class="sequoia-comment-time"><time datetime="{{.CreatedAt}}">{{.TimeAgo}}</time></a>
    </div>
    <p class="sequoia-comment-text">{{.Text}}</p>
  </div>
</div>{{end}}`
