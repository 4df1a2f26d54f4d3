package llm

import "fmt"

// TranslationPrompt is the fixed instruction sent with every chunk.
func TranslationPrompt(chunk, targetLanguage string) string {
	return fmt.Sprintf("Translate the following English text into %s.\n"+
		"Return only the translation, with no extra commentary or quotation marks.\n\n%s",
		targetLanguage, chunk)
}
