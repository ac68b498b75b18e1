package anthropic

// BuildCachedSystemBlocks wraps a fixed instruction set in a single system
// block with an ephemeral cache breakpoint. Extraction prompts repeat on
// every call, so the cached prefix is reused across requests within the TTL.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "5m",
			},
		},
	}
}
