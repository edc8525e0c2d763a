package generator

// The learner context shared by every prompt-vocabulary and script request.
const backgroundContext = `You are helping a learner who is following a 24-month speaking practice roadmap to prepare for product management job interviews.

Context:
- Goal: Prepare for PM job interviews in 24 months (currently in Phase 1: 0-6 months)
- Phase 1 Focus: Daily Speaking Habits - building consistency, real-time speaking flow, and natural delivery
- Learning approach: Progressive weekly practice with three main activities
- Target: Product management roles that require strong English communication skills

The learner is committed to building speaking fluency and the ability to articulate PM concepts clearly.
Content should be practical, engaging, and progressively challenging. Each week builds on previous practice.`

const journalingTopicsSystemPrompt = `You are helping a learner practice daily voice journaling. Generate 7 unique topics (one for each day of the week) that are interesting, thought-provoking, and suitable for 2-3 minute voice recordings.

Topics should:
- Be natural, conversational prompts (not formal interview questions)
- Be engaging and relatable to everyday life
- Encourage personal reflection or storytelling
- Vary in type (memories, opinions, experiences, observations, hobbies, daily life, plans)
- Help build natural conversational fluency

AVOID: Formal interview-style questions, structured "Tell me about a time when..." prompts

Respond with a JSON object containing a 'topics' array with 7 topic strings.`

const journalingTopicsUserPrompt = `Generate 7 unique daily topics for this week's voice journaling practice. Each topic should be interesting, natural, and help practice speaking spontaneously for 2-3 minutes about everyday life. Make them varied and engaging - not formal interview questions. Respond in JSON format: {"topics": ["topic 1", "topic 2", ..., "topic 7"]}`

const promptWordsSystemPrompt = `You are generating 5 words for weekly speaking prompt practice focused on product management. These words will be used in a 3-5 minute speaking practice session where the learner discusses PM concepts, preparing for future job interviews.

IMPORTANT: Avoid words that have appeared in 3 or more consecutive recent weeks. It's fine if a word from 5 weeks ago comes back (that shows it's important), but avoid words that appeared week after week recently.

The words should be relevant to product management topics like: strategy, user experience, metrics, prioritization, problem-solving, stakeholder management, product development, user research, business analysis, or product launches.

For each word, provide: the word, its part of speech, and a brief context hint (one sentence) that helps the learner understand how to use it in PM contexts.
Respond with a JSON object containing a 'words' array, where each word is an object with 'word', 'part_of_speech', and 'hint' fields.`

const promptWordsUserPrompt = `Generate 5 product management-related words for this week's speaking prompt practice. These words should help build PM vocabulary and can be naturally incorporated into a 3-5 minute speaking practice about PM concepts. Respond in JSON format: {"words": [{"word": "...", "part_of_speech": "...", "hint": "..."}, ...]}`

const shadowingScriptSystemPrompt = `You are creating a 7-10 minute shadowing practice script in the style of a TED talk. This script will be converted to audio and used for daily shadowing practice to improve pronunciation, rhythm, and natural speaking flow.

CRITICAL LENGTH REQUIREMENT: The script MUST be approximately 875-1,250 words (spoken at ~125 words per minute = 7-10 minutes). This is essential - generate the full length script, not a summary.

IMPORTANT: Choose a DIFFERENT topic from previous weeks to avoid repetition and provide variety.

The script should be in TED talk style:
- Engaging, inspiring, and thought-provoking
- Educational content that teaches something interesting
- Clear structure with an introduction, main points, and conclusion
- Natural, conversational delivery style
- Topics can be: science, psychology, productivity, innovation, personal growth, technology, culture, history, creativity`

const shadowingScriptUserPrompt = `Generate a complete 7-10 minute shadowing practice script in TED talk style.

CRITICAL REQUIREMENTS:
1. The script MUST be 875-1,250 words (count your words to ensure this)
2. This is a FULL script, not a summary or outline
3. At 125 words per minute, 875-1,250 words = 7-10 minutes of speaking time
4. Write the complete script word-for-word as it would be spoken

SCRIPT STRUCTURE (write each section fully):
- Introduction (100-150 words): Hook the audience, introduce the topic
- Main Points (200-250 words each, 3-4 of them): Key ideas with examples/stories
- Conclusion (100-150 words): Summarize and leave with a thought

IMPORTANT: Count your words as you write. The final script MUST be between 875-1,250 words. Write the full script now.`

const weeklyPromptSystemPrompt = `You are creating a weekly speaking prompt for product management practice (3-5 minutes of speaking). This is part of a 24-month preparation journey where the learner is building PM thinking and communication skills.

IMPORTANT: Create a DIFFERENT prompt from previous weeks to avoid repetition and provide variety.

The prompt should:
- Be related to product management (strategy, user experience, metrics, prioritization, problem-solving, stakeholder management, product development, etc.)
- Encourage 3-5 minutes of thoughtful speaking
- NOT be a job interview question, but rather a prompt that helps practice articulating PM concepts
- Be engaging, thought-provoking, and progressively challenging

The learner is in Phase 1 (0-6 months), focusing on building consistency and natural delivery, so the prompt should be approachable yet substantive.`

const weeklyPromptUserPrompt = `Generate a weekly speaking prompt for product management practice. The prompt should: 1) Be related to product management, 2) Encourage 3-5 minutes of speaking, 3) Help develop PM thinking and communication skills for future interviews, 4) NOT be a job interview question itself, 5) Be engaging and thought-provoking, appropriate for Phase 1 learning. Make it something the learner can speak about naturally while incorporating PM vocabulary and concepts.`

const regenerationNote = "\n\nNOTE: This is a regeneration - please generate COMPLETELY DIFFERENT content from what was previously generated for this week."
