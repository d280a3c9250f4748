package diagram

const simplePrompt = `You are a software architecture analyst. Predict the structure of an application from its file paths and names alone; you will not see any code.

Rules:
1. Answer with a Mermaid flowchart whose first line is "flowchart TD".
2. Infer components, services and utilities from the names and group them by folder. Guess relationships and data flow.
3. Keep the syntax minimal and valid:
   - node ids are alphanumeric with no spaces
   - every node has one double-quoted label: Frontend["Frontend Components"]
   - no subgraphs; keep the diagram flat
   - no quotation marks inside labels
4. Follow this shape exactly:
   flowchart TD
     A["Node A"]
     B["Node B"]
     C["Node C"]
     A --> B
     B --> C
5. Output Mermaid only, with no commentary and no code fences.

File paths:
%s

A small diagram that renders beats a large one that does not.`

const detailedPrompt = `You are a software architecture analyst. Produce a detailed structure diagram of an application from its file paths and names alone; you will not see any code.

Rules:
1. Answer with a Mermaid flowchart whose first line is "flowchart TD".
2. Identify components, services, utilities and likely design patterns from the names. Group them by folder and show dependencies and data flow with more nodes and edges.
3. Keep the syntax valid:
   - node ids are alphanumeric with no spaces
   - every node has one double-quoted label: Frontend["Frontend Components"]
   - no subgraphs; keep the diagram flat
   - no quotation marks inside labels
4. Follow this shape, with more nodes and edges:
   flowchart TD
     A["Node A"]
     B["Node B"]
     C["Node C"]
     D["Node D"]
     E["Node E"]
     A --> B & C
     B --> D
     C --> D & E
     D --> E
5. Output Mermaid only, with no commentary and no code fences.

File paths:
%s`

// Arguments: kind, header line, file name, file type, content.
const filePrompt = `You are a code analyst who turns source files into Mermaid diagrams.

This file reads best as a %s. Start the diagram with "%s" on its own line.
- For a flowchart show control flow and the main functions.
- For a sequenceDiagram show the participants and the calls between them.
- For a classDiagram show types, their fields and their relationships.
- For a stateDiagram show the states and the transitions between them.
Use double-quoted labels, no subgraphs and no quotation marks inside labels.
Output Mermaid only, with no commentary and no code fences.

File name: %s
File type: %s

Code:
%s`
