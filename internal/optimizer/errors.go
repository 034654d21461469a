package optimizer

import "errors"

// ErrMalformedResponse reports that an LLM reply did not contain the
// expected <START>...<END> delimiters. CritiqueAndRefine returns it;
// RefinePrompts treats it as a skip-this-round no-op rather than aborting
// the run, matching the original's tolerance for an occasional malformed
// completion.
var ErrMalformedResponse = errors.New("optimizer: llm output is not in the expected format")
