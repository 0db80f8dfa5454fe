package ide

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The editor offers no internal API, so every extractor reads the rendered
// UI. These scripts are deliberately dumb collectors: they ship raw text
// back to Go, where the matching rules live and can be unit-tested.

// scriptShallowTexts collects the text content of shallow (leaf) nodes.
// Short labels only; long prose nodes are never model/mode indicators.
const scriptShallowTexts = `(() => {
	const texts = [];
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
	let node;
	while ((node = walker.nextNode())) {
		const t = node.textContent.trim();
		if (t && t.length <= 80) texts.push(t);
		if (texts.length >= 500) break;
	}
	return { found: texts.length > 0, texts: texts };
})()`

// scriptWindowContext collects the window title and the accessible labels
// and titles of open editor tabs, which often embed absolute file paths.
const scriptWindowContext = `(() => {
	const labels = [];
	const seen = new Set();
	const push = (v) => {
		if (v && v.length <= 500 && !seen.has(v)) { seen.add(v); labels.push(v); }
	};
	const sel = '[role="tab"], [class*="tab"], [class*="title"]';
	for (const el of document.querySelectorAll(sel)) {
		push((el.getAttribute('aria-label') || '').trim());
		push((el.getAttribute('title') || '').trim());
		if (labels.length >= 200) break;
	}
	return { found: true, title: document.title, labels: labels };
})()`

// optionCollector is a JS expression shared by the selection scripts: it
// gathers the trimmed texts of currently visible clickable option elements.
const optionCollector = `(() => {
	const opts = [];
	const seen = new Set();
	const sel = '[role="option"], [role="menuitem"], [role="menuitemradio"], [class*="option"], [class*="dropdown"] [class*="item"], li';
	for (const el of document.querySelectorAll(sel)) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const t = (el.textContent || '').trim();
		if (!t || t.length > 80 || seen.has(t)) continue;
		seen.add(t);
		opts.push(t);
	}
	return opts;
})`

// scriptOpenPicker finds a trigger element whose short text contains one of
// the keywords, snapshots the option texts already visible, then clicks the
// trigger. The snapshot lets the caller isolate newly rendered options.
func scriptOpenPicker(keywords []string) string {
	kws, _ := json.Marshal(lowerAll(keywords))
	return fmt.Sprintf(`(() => {
	const kws = %s;
	const existing = %s();
	for (const el of document.querySelectorAll('*')) {
		if (el.children.length > 0) continue;
		const t = (el.textContent || '').trim();
		if (!t || t.length > 60) continue;
		const lower = t.toLowerCase();
		if (!kws.some(k => lower.includes(k))) continue;
		const target = el.closest('[role="button"], button, [class*="dropdown"], [class*="picker"], [class*="selector"]') || el;
		target.click();
		return { found: true, clicked: true, trigger: t, existing: existing };
	}
	return { found: false };
})()`, kws, optionCollector)
}

// scriptCollectOptions enumerates currently visible clickable options.
const scriptCollectOptions = `(() => {
	const opts = ` + optionCollector + `();
	return { found: opts.length > 0, options: opts };
})()`

// scriptClickOptionByText clicks the visible option whose trimmed text
// equals the given label.
func scriptClickOptionByText(label string) string {
	quoted, _ := json.Marshal(label)
	return fmt.Sprintf(`(() => {
	const want = %s;
	const sel = '[role="option"], [role="menuitem"], [role="menuitemradio"], [class*="option"], [class*="dropdown"] [class*="item"], li';
	for (const el of document.querySelectorAll(sel)) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		if ((el.textContent || '').trim() !== want) continue;
		el.scrollIntoView({ block: 'center' });
		el.click();
		return { found: true, clicked: true };
	}
	return { found: false };
})()`, quoted)
}

// scriptDispatchEscape closes whatever affordance is open.
const scriptDispatchEscape = `(() => {
	const ev = new KeyboardEvent('keydown', { key: 'Escape', keyCode: 27, bubbles: true });
	(document.activeElement || document.body).dispatchEvent(ev);
	return { found: true };
})()`

// scriptApprovalContext collects the full rendered text plus the short
// labels of clickable elements, for approval detection.
const scriptApprovalContext = `(() => {
	const buttons = [];
	const seen = new Set();
	const sel = 'button, [role="button"], a, [class*="button"]';
	for (const el of document.querySelectorAll(sel)) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const t = (el.textContent || '').trim();
		if (!t || t.length > 24 || seen.has(t)) continue;
		seen.add(t);
		buttons.push(t);
	}
	const text = (document.body.innerText || '').slice(0, 20000);
	return { found: true, text: text, buttons: buttons };
})()`

// scriptClickAffordance clicks the first visible short-label element whose
// text matches one of the keywords.
func scriptClickAffordance(keywords []string) string {
	kws, _ := json.Marshal(lowerAll(keywords))
	return fmt.Sprintf(`(() => {
	const kws = %s;
	const sel = 'button, [role="button"], a, [class*="button"]';
	for (const el of document.querySelectorAll(sel)) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const t = (el.textContent || '').trim();
		if (!t || t.length > 24) continue;
		const lower = t.toLowerCase();
		if (!kws.some(k => lower === k || lower.startsWith(k + ' ') || lower.endsWith(' ' + k) || lower.includes(' ' + k + ' '))) continue;
		el.scrollIntoView({ block: 'center' });
		try {
			el.click();
			return { found: true, clicked: true, label: t };
		} catch (e) {
			return { found: true, clicked: false, label: t };
		}
	}
	return { found: false, clicked: false };
})()`, kws)
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
