package game

import "github.com/valyala/fastrand"

// Questions yields at most one task for a set of selected stacks.
type Questions interface {
	Select(stacks []string) (*Question, bool)
}

// Pool is the built-in question bank, keyed by tech stack.
type Pool struct {
	questions map[string][]Question
}

func NewPool() *Pool {
	return &Pool{questions: questionPool}
}

var _ Questions = (*Pool)(nil)

// Select picks a uniform-random question among all questions tagged with
// any of the given stacks.
func (p *Pool) Select(stacks []string) (*Question, bool) {
	var available []Question
	for _, stack := range stacks {
		available = append(available, p.questions[stack]...)
	}

	if len(available) == 0 {
		return nil, false
	}

	q := available[fastrand.Uint32n(uint32(len(available)))]
	return &q, true
}

// Count reports how many questions the pool holds for the given stacks.
func (p *Pool) Count(stacks []string) int {
	var n int
	for _, stack := range stacks {
		n += len(p.questions[stack])
	}
	return n
}

var questionPool = map[string][]Question{
	"React": {
		{
			ID:          "react-state-counter",
			Title:       "Fix the Counter Bug",
			Description: "The counter increments by 2 instead of 1. Fix the state update logic.",
			StarterCode: `# Fix this counter - it increments by 2!
counter = 0

def increment():
    global counter
    counter = counter + 1
    counter = counter + 1  # BUG: Extra increment
    return counter

# Test it
print(increment())  # Should be 1
print(increment())  # Should be 2
print(increment())  # Should be 3`,
			TestCases:    []TestCase{{Input: "", ExpectedOutput: "1\n2\n3"}},
			Difficulty:   "easy",
			TechStack:    "React",
			CompilerType: "WEB_WORKER",
		},
		{
			ID:          "react-list-render",
			Title:       "Fix List Rendering",
			Description: "The list is not rendering all items. Fix the loop condition.",
			StarterCode: `# Fix the list display
items = ['Apple', 'Banana', 'Cherry', 'Date']

def display_items():
    for i in range(len(items) - 1):  # BUG: Missing last item
        print(f"{i+1}. {items[i]}")

display_items()`,
			TestCases:    []TestCase{{Input: "", ExpectedOutput: "1. Apple\n2. Banana\n3. Cherry\n4. Date"}},
			Difficulty:   "easy",
			TechStack:    "React",
			CompilerType: "WEB_WORKER",
		},
	},
	"Node.js": {
		{
			ID:          "nodejs-async-bug",
			Title:       "Fix Async Function",
			Description: "The async function is not waiting properly. Fix the promise handling.",
			StarterCode: `# Fix the async timing issue
import asyncio

async def fetch_data():
    await asyncio.sleep(0.1)
    return "Data loaded"

async def main():
    result = fetch_data()  # BUG: Missing await
    print(result)

asyncio.run(main())`,
			TestCases:    []TestCase{{Input: "", ExpectedOutput: "Data loaded"}},
			Difficulty:   "medium",
			TechStack:    "Node.js",
			CompilerType: "WEB_WORKER",
		},
	},
	"Python": {
		{
			ID:          "python-sort-bug",
			Title:       "Fix the Sorting Algorithm",
			Description: "The sort function has a comparison bug. Fix the logic.",
			StarterCode: `# Fix the sorting logic
def bubble_sort(arr):
    n = len(arr)
    for i in range(n):
        for j in range(0, n-i-1):
            if arr[j] < arr[j+1]:  # BUG: Wrong comparison
                arr[j], arr[j+1] = arr[j+1], arr[j]
    return arr

numbers = [64, 34, 25, 12, 22]
print(bubble_sort(numbers))`,
			TestCases:    []TestCase{{Input: "", ExpectedOutput: "[12, 22, 25, 34, 64]"}},
			Difficulty:   "easy",
			TechStack:    "Python",
			CompilerType: "PYODIDE",
		},
	},
	"TypeScript": {
		{
			ID:          "ts-null-check",
			Title:       "Fix Null Check",
			Description: "Add proper null checking to prevent errors.",
			StarterCode: `# Fix the null safety issue
def get_user_name(user):
    return user['name'].upper()  # BUG: No null check

users = [
    {'name': 'Alice'},
    None,
    {'name': 'Bob'}
]

for user in users:
    print(get_user_name(user))`,
			TestCases:    []TestCase{{Input: "", ExpectedOutput: "ALICE\nUnknown\nBOB"}},
			Difficulty:   "medium",
			TechStack:    "TypeScript",
			CompilerType: "WEB_WORKER",
		},
	},
}
