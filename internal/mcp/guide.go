package mcpserver

// diagramGuide is returned by the read_diagram_guide tool. Agents that read
// it before drawing produce noticeably better diagrams.
const diagramGuide = `# Diagram design guide

## Layout
- Leave at least 60px of whitespace between sibling shapes and 100px between
  layers of a hierarchy.
- Flowcharts read top-to-bottom; sequence and pipeline diagrams read
  left-to-right. Pick one axis and keep it.
- Size boxes by their label: roughly 12px per character of the longest line,
  minimum 120x60.

## Connections
- Create both endpoints first, then connect them with an arrow using
  startId/endId so the arrow binds to the shapes and follows them.
- Prefer one arrow per relationship. Crossing arrows usually mean the layout
  needs another pass, not more arrows.
- Label an arrow only when the relationship is not obvious.

## Color and style
- Use backgroundColor to encode category, not decoration; three or four hues
  per diagram at most.
- Keep strokeColor consistent across a category. The default dark stroke on a
  transparent fill is right for neutral shapes.
- Reserve red tones for error paths and warnings.

## Text
- Standalone text elements are titles and annotations; labels that belong to
  a shape go in the shape's text field.
- Sentence case, short phrases, no trailing punctuation.

## Grouping
- Group shapes that must move as one (a service with its datastore, a
  swimlane's contents) with group_elements.
- Frames are for named regions of the canvas; groups are for movement.
`
