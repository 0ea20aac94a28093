package transcribe

import (
	"fmt"
	"strings"

	"ariacut/internal/language"
	"ariacut/internal/lyrics"
)

const systemPrompt = `You are a subtitle timing assistant for opera performance videos.
You listen to the attached audio and answer with a JSON array only, no prose and no markdown.
Every element has the fields "index", "start", "end" and "text".
Timestamps use the format HH:MM:SS,mmm and are relative to the start of the audio.`

const segmentFormat = `[
  {"index": 1, "start": "00:01:25,300", "end": "00:01:29,800", "text": "Nessun dorma! Nessun dorma!"},
  {"index": 2, "start": "00:01:30,200", "end": "00:01:35,400", "text": "Tu pure, o Principessa,"}
]`

func songContext(song lyrics.Song) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	fmt.Fprintf(&b, "- Artist: %s\n", orUnknown(song.Artist))
	fmt.Fprintf(&b, "- Piece: %s\n", orUnknown(song.Title))
	if song.Opera != "" {
		fmt.Fprintf(&b, "- Opera: %s\n", song.Opera)
	}
	if song.Composer != "" {
		fmt.Fprintf(&b, "- Composer: %s\n", song.Composer)
	}
	fmt.Fprintf(&b, "- Sung language: %s\n", language.DisplayName(song.Language))
	return b.String()
}

func guidedPrompt(lyric lyrics.Lyric, song lyrics.Song) string {
	return songContext(song) + `
ORIGINAL LYRIC (correct, official text):
---
` + lyric.String() + `
---

TASK:
Listen to the COMPLETE audio and mark when each verse of the lyric is sung.

RULES:
1. Use EXACTLY the text of the lyric above and do not change any word.
2. Mark when each phrase starts and ends in the audio.
3. Ignore instrumental passages, applause and silence.
4. If a phrase is not sung, omit it.
5. If a phrase is sung again but written only once, repeat it and append [REPEAT].
6. If you are unsure about the timing of a phrase, append [?].
7. If you hear singing that is not in the lyric, write [UNIDENTIFIED] followed by what you hear.

FORMAT:
` + segmentFormat
}

func blindPrompt(song lyrics.Song) string {
	return songContext(song) + `
TASK:
Transcribe everything that is sung in the audio, phrase by phrase, in the sung language.

RULES:
1. Write what you hear; do not correct it against any known lyric.
2. Mark when each phrase starts and ends in the audio.
3. Ignore instrumental passages, applause and silence.
4. If you are unsure about a word, append [?].

FORMAT:
` + segmentFormat
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return strings.TrimSpace(value)
}
