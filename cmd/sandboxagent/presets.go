package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rhuss/sandboxagent/pkg/agent"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/tools/builtins/artifacts"
	"github.com/rhuss/sandboxagent/pkg/tools/builtins/codeinterpreter"
	"github.com/rhuss/sandboxagent/pkg/tools/builtins/findings"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

// preset is a ready-to-run agent plus the sample tasks it was built for.
type preset struct {
	Agent    *agent.Agent
	Samples  []string
	Notebook *findings.Provider
}

type presetOptions struct {
	Model     string
	Executor  sandbox.Executor
	Runner    *agent.Runner
	OutputDir string
}

var presets = map[string]func(presetOptions) (*preset, error){
	"tasks":    tasksPreset,
	"live":     livePreset,
	"research": researchPreset,
	"charts":   chartsPreset,
}

func buildPreset(name string, opts presetOptions) (*preset, error) {
	build, ok := presets[name]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	return build(opts)
}

const printRule = `When you use a code execution tool you MUST print every value you want to see:
print() in Python, console.log() in JavaScript, echo in Bash. Code without print
statements runs but produces no output.

Example: to calculate 5 + 5 write
result = 5 + 5
print(f"The result is: {result}")
and not just 5 + 5.`

func tasksPreset(opts presetOptions) (*preset, error) {
	code, err := codeinterpreter.New(opts.Executor, codeinterpreter.Config{})
	if err != nil {
		return nil, err
	}
	notebook := findings.New(findings.Options{SaveResult: true})

	return &preset{
		Agent: &agent.Agent{
			Name:         "TaskExecutor",
			Model:        opts.Model,
			Instructions: "You are a helpful AI assistant that executes code to solve problems.\n\n" + printRule,
			Tools:        []registry.FunctionProvider{code, notebook},
		},
		Notebook: notebook,
		Samples: []string{
			"GOAL: Analyze my Q4 2024 sales and predict January.\n" +
				"Sales data: Oct=$45,230, Nov=$52,180, Dec=$68,950\n\n" +
				"Calculate total sales, average, growth rates, and predict January. Write Python code and print all results.",
			"I want to buy a house for $450,000 with 20% down at 6.5% interest over 30 years. " +
				"Calculate the monthly payment, total interest and an amortization summary for the first year.",
			"Use JavaScript to generate 5 strong random passwords of 16 characters and print them.",
			"Use Bash to print today's date in ISO format and the number of days until the end of the year.",
		},
	}, nil
}

func livePreset(opts presetOptions) (*preset, error) {
	code, err := codeinterpreter.New(opts.Executor, codeinterpreter.Config{
		ToolName: "execute_code_with_network",
		Description: "Execute code in a sandbox WITH internet access. Use it to fetch live data from public APIs. " +
			"Supports Python, JavaScript and Bash. Print the values you want to see.",
		EnableNetworking: true,
	})
	if err != nil {
		return nil, err
	}

	return &preset{
		Agent: &agent.Agent{
			Name:         "CryptoAnalyst",
			Model:        opts.Model,
			Instructions: "You are a helpful cryptocurrency analyst that can fetch live data and analyze portfolios.\n\n" + printRule,
			Tools:        []registry.FunctionProvider{code},
		},
		Samples: []string{
			"Analyze my crypto portfolio: bitcoin 0.5, ethereum 3.2, cardano 5000.\n\n" +
				"Fetch LIVE prices from https://api.coingecko.com/api/v3/simple/price?ids=bitcoin,ethereum,cardano&vs_currencies=usd&include_24hr_change=true " +
				"using Python with only urllib and json. Calculate the total value, the biggest holding and the 24h changes, and print all results with labels.",
		},
	}, nil
}

func researchPreset(opts presetOptions) (*preset, error) {
	python, err := codeinterpreter.New(opts.Executor, codeinterpreter.Config{
		ToolName: "execute_python_analysis",
		Description: "Execute Python code for data analysis in a secure sandbox. " +
			"Use it for data processing, calculations and statistics. Print all results.",
		Languages: []sandbox.Language{sandbox.Python},
	})
	if err != nil {
		return nil, err
	}
	notebook := findings.New(findings.Options{SaveFinding: true})

	analyst := &agent.Agent{
		Name:  "data_analyst",
		Model: opts.Model,
		Instructions: `You are an expert Data Analyst with Python code execution capabilities.
Run exploratory analysis with execute_python_analysis, calculate relevant statistics,
identify patterns and trends and explain your findings clearly.
Save important findings with save_finding.

` + printRule,
		Tools: []registry.FunctionProvider{python, notebook},
	}
	statistician := &agent.Agent{
		Name:  "statistician",
		Model: opts.Model,
		Instructions: `You are an expert Statistician. Use execute_python_analysis for hypothesis tests,
correlation and regression analysis, distributions and predictive models.
State hypotheses, show the tests, report confidence intervals and p-values and
interpret results in plain language. Save significant findings with save_finding.

` + printRule,
		Tools: []registry.FunctionProvider{python, notebook},
	}
	writer := &agent.Agent{
		Name:  "report_writer",
		Model: opts.Model,
		Instructions: `You are an expert Technical Writer for data science reports.
Synthesize the findings you are given into a clear report with the sections
Key Findings, Insights and Recommendations. Use bullet points and specific numbers.`,
		Tools: []registry.FunctionProvider{notebook},
	}

	director := &agent.Agent{
		Name:  "research_director",
		Model: opts.Model,
		Instructions: `You are the Research Director coordinating a team of specialists available as tools:
- data_analyst_tool: data analysis and Python code execution
- statistician_tool: advanced statistical analysis
- report_writer_tool: summaries and reports

Break the research question down, call data_analyst_tool for exploratory analysis,
statistician_tool for statistical tests and report_writer_tool to synthesize the
findings. Then give a final comprehensive answer.`,
		Tools: []registry.FunctionProvider{
			analyst.AsTool(opts.Runner, "data_analyst_tool", "Expert Data Analyst: performs data analysis and Python code execution"),
			statistician.AsTool(opts.Runner, "statistician_tool", "Expert Statistician: conducts advanced statistical analysis"),
			writer.AsTool(opts.Runner, "report_writer_tool", "Expert Technical Writer: creates summaries and reports"),
			notebook,
		},
	}

	return &preset{
		Agent:    director,
		Notebook: notebook,
		Samples: []string{
			"Research question: does advertising spend drive sales? Monthly data for 12 months:\n" +
				"ad spend ($k): 12, 15, 11, 18, 20, 22, 19, 25, 27, 24, 30, 32\n" +
				"sales ($k): 110, 125, 105, 140, 150, 162, 148, 175, 190, 170, 205, 215\n" +
				"Analyze the relationship, test its significance and write a short report with recommendations.",
		},
	}, nil
}

func chartsPreset(opts presetOptions) (*preset, error) {
	python, err := codeinterpreter.New(opts.Executor, codeinterpreter.Config{
		ToolName: "execute_python_analysis",
		Description: "Execute Python code in a sandbox with pandas, matplotlib and seaborn available. " +
			"Save charts as PNG files under /tmp and print what you saved.",
		Languages: []sandbox.Language{sandbox.Python},
	})
	if err != nil {
		return nil, err
	}
	download, err := artifacts.New(opts.Executor, opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("charts preset needs the hosted sandbox backend: %w", err)
	}

	return &preset{
		Agent: &agent.Agent{
			Name:  "data_visualizer",
			Model: opts.Model,
			Instructions: `You are an expert Data Visualization Specialist.
Create the data you need inside the sandbox, analyze it and generate professional charts
with matplotlib (use the Agg backend). Save each chart as a PNG under /tmp, then copy it
to the user with download_sandbox_file. Explain the key insight of every chart.

` + printRule,
			Tools: []registry.FunctionProvider{python, download},
		},
		Samples: []string{
			"Create a sales dataset with 200 rows (date, product, category, region, units, unit_price) " +
				"and make a bar chart of total revenue by category. Download it as revenue_by_category.png.",
			"Using a similar dataset, plot the monthly revenue trend as a line chart and download it as monthly_trend.png.",
		},
	}, nil
}
