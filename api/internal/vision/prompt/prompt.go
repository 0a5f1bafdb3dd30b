// Package prompt holds the embedded prompt text and answer schema shared by
// every vision engine. Keeping them as consts means the binary has no runtime
// file dependencies.
package prompt

const System = `You are a nutrition assistant that estimates calories from a single food photo.
Look at the image and identify every distinct food item you can see.
For each item estimate a realistic portion and its calories.

Answer with ONE JSON object only, no prose, no markdown fences, matching exactly:
{
  "calories": <total calories, number>,
  "foodItems": [
    {"name": "<item name>", "calories": <number>, "portion": "<free text portion>"}
  ],
  "confidence": <number between 0 and 1>
}

Rules:
- calories values are non-negative numbers;
- foodItems must contain at least one entry; if the photo shows no food, return
  a single item named "unidentified" with 0 calories and confidence 0;
- confidence reflects how sure you are about the overall total;
- never output anything outside the JSON object.`

const User = `Estimate the calories for the food on this photo.`

// AnswerSchema documents the expected shape; engines that support structured
// output may pass it through, the rest rely on the System instruction alone.
const AnswerSchema = `{
  "type": "object",
  "properties": {
    "calories": {"type": "number", "minimum": 0},
    "foodItems": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "calories": {"type": "number", "minimum": 0},
          "portion": {"type": "string"}
        },
        "required": ["name", "calories", "portion"]
      }
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["calories", "foodItems", "confidence"]
}`
