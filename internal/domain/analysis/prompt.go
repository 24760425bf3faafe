package analysis

// DefaultSystemInstruction is used when config.yaml leaves system_instruction empty.
const DefaultSystemInstruction = `You are a senior call-center quality analyst. You listen to recorded customer calls and report on them.
Respond with a single YAML document only. Do not add commentary before or after it.`

// DefaultPrompt is used when config.yaml leaves prompt empty.
const DefaultPrompt = `Analyze the attached call recording and fill in this structure:

call_summary: <two or three sentences>
customer_intent: <string>
resolution_status: <resolved|unresolved|escalated>
customer_sentiment: <positive|neutral|negative>
agent_performance:
  empathy: <1-5>
  clarity: <1-5>
  compliance: <1-5>
key_topics: [<string>, ...]
action_items: [<string>, ...]`
