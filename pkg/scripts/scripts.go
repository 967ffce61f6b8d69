// Package scripts holds the page automation payloads evaluated in each target.
// The payloads are opaque to the rest of fanview; only the adapter name selects them.
package scripts

import (
	"encoding/json"
	"strings"
)

// Adapter names understood by Provider.
const (
	AdapterClaude  = "claude"
	AdapterChatGPT = "chatgpt"
	AdapterGemini  = "gemini"
	AdapterGeneric = "generic"
)

// Reload reloads the current page.
const Reload = "window.location.reload();"

// ClearCache empties the page's storage and cache buckets.
const ClearCache = `(async () => {
  try {
    localStorage.clear();
    sessionStorage.clear();
    if ('caches' in window) {
      const names = await caches.keys();
      await Promise.all(names.map((name) => caches.delete(name)));
    }
  } catch (e) {
    console.error('cache clear failed', e);
  }
})();`

// NewSession presses the new-conversation shortcut most chat sites bind to Cmd+Shift+O.
const NewSession = `document.dispatchEvent(new KeyboardEvent('keydown', {
  key: 'o', code: 'KeyO', keyCode: 79, which: 79,
  metaKey: true, shiftKey: true, bubbles: true, cancelable: true
}));`

// FocusInput moves the caret back to the control strip's text box.
const FocusInput = `const input = document.getElementById('unified-input');
if (input) { input.focus(); }`

// Provider maps target labels to adapters.
type Provider struct {
	adapters map[string]string
}

// NewProvider returns a Provider for the label -> adapter map. Unknown labels use the generic adapter.
func NewProvider(adapters map[string]string) *Provider {
	m := make(map[string]string, len(adapters))
	for label, adapter := range adapters {
		m[label] = strings.ToLower(strings.TrimSpace(adapter))
	}
	return &Provider{adapters: m}
}

// Adapter returns the adapter name used for label.
func (p *Provider) Adapter(label string) string {
	if a, ok := p.adapters[label]; ok && a != "" {
		return a
	}
	return AdapterGeneric
}

// Send returns the script that types text into label's prompt box and submits it.
func (p *Provider) Send(label, text string) string {
	literal := jsString(text)
	switch p.Adapter(label) {
	case AdapterClaude:
		return sendContentEditable(literal, `const editors = Array.from(document.querySelectorAll('[contenteditable="true"]'))
    .filter((el) => { const r = el.getBoundingClientRect(); return r.width > 0 && r.height > 0; });
  const editor = editors.sort((a, b) => a.getBoundingClientRect().bottom - b.getBoundingClientRect().bottom).pop();`,
			`Array.from((editor.closest('form') || document).querySelectorAll('button'))
      .find((b) => /send|送信/i.test(b.getAttribute('aria-label') || ''))`)
	case AdapterChatGPT:
		return sendContentEditable(literal, `const editor = document.querySelector('#prompt-textarea');`,
			`document.querySelector('button[data-testid="send-button"]')
      || document.querySelector('form button[type="submit"]')`)
	case AdapterGemini:
		return sendContentEditable(literal, `const editor = document.querySelector('.ql-editor[contenteditable="true"]')
    || document.querySelector('rich-textarea [contenteditable="true"]');`,
			`document.querySelector('button[aria-label*="Send"]') || document.querySelector('.send-button')`)
	default:
		return sendContentEditable(literal, `const editor = document.querySelector('textarea, [contenteditable="true"]');`,
			`document.querySelector('button[type="submit"]')`)
	}
}

func sendContentEditable(literal, findEditor, findButton string) string {
	var b strings.Builder
	b.WriteString("const text = " + literal + ";\n")
	b.WriteString(findEditor + "\n")
	b.WriteString(`if (editor) {
  editor.focus();
  if ('value' in editor && editor.tagName === 'TEXTAREA') {
    editor.value = text;
    editor.dispatchEvent(new Event('input', { bubbles: true }));
  } else {
    document.execCommand('selectAll', false, null);
    if (!document.execCommand('insertText', false, text)) { editor.textContent = text; }
    editor.dispatchEvent(new InputEvent('input', { bubbles: true, cancelable: true, inputType: 'insertText', data: text }));
  }
  setTimeout(() => {
    const button = `)
	b.WriteString(findButton)
	b.WriteString(`;
    if (button && !button.disabled) { button.click(); }
  }, 100);
}`)
	return b.String()
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}
