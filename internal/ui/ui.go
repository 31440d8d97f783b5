package ui

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bz888/parley/internal/api"
	"github.com/bz888/parley/internal/config"
	"github.com/bz888/parley/internal/conversation"
	"github.com/bz888/parley/internal/logger"
	"github.com/bz888/parley/internal/stream"
)

var app *tview.Application
var wg sync.WaitGroup

var (
	debugConsole *tview.TextView
	chatView     *tview.TextView
	textArea     *tview.TextArea
	sidebar      *tview.List
	localLogger  *logger.Logger

	client    *api.Client
	manager   *conversation.Manager
	publisher *conversation.Publisher

	// transcript holds the finalized chat blocks; pending is the assistant
	// block of the turn still streaming. The visible text is always
	// transcript+pending, so every snapshot replaces the pending block
	// instead of appending to it.
	transcript string
	pending    string

	sidebarIDs []string
)

func Init() {
	app = tview.NewApplication()
	app.EnablePaste(true)
	app.EnableMouse(true)

	debugConsole = initDebugConsole()

	chatView = initChatViewer()
	textArea = initChatInput()
	sidebar = initSidebar()
}

func initChatViewer() *tview.TextView {
	chatView := tview.NewTextView().
		SetChangedFunc(func() {
			app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	chatView.SetTitle("Conversation").SetBorder(true)
	chatView.SetScrollable(true)
	chatView.ScrollToEnd()
	return chatView
}

func initChatInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetTitle("Question").SetBorder(true)
	return textArea
}

func initSidebar() *tview.List {
	list := tview.NewList().ShowSecondaryText(true)
	list.SetTitle("Conversations").SetBorder(true)
	return list
}

func initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

func Run() {
	localLogger = logger.NewLogger("views")

	client = api.DefaultClient()
	publisher = conversation.NewPublisher(refreshConversations, onRender)
	manager = conversation.NewManager(client, publisher)
	manager.OnTurnEnd = func() {
		app.QueueUpdateDraw(func() {
			finalizeTurn()
			textArea.SetDisabled(false)
		})
	}

	chatView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			app.SetFocus(textArea)
		}
		return event
	})

	sidebar.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'd' {
			deleteSelectedConversation()
			return nil
		}
		return event
	})

	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(chatView, 0, 1, false).
		AddItem(textArea, 8, 2, true)
	mainFlex := tview.NewFlex().
		AddItem(sidebar, 28, 1, false).
		AddItem(chatFlex, 0, 2, false)

	if config.Dev {
		mainFlex.AddItem(debugConsole, 0, 1, true)
	}

	setInputCapture(mainFlex)

	publisher.RequestRefresh()

	if err := app.SetRoot(mainFlex, true).SetFocus(textArea).Run(); err != nil {
		panic(err)
	}
}

func setInputCapture(mainFlex *tview.Flex) {
	textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {

		switch event.Key() {
		case tcell.KeyESC:
			if chatView.GetText(false) != "" {
				app.SetFocus(chatView)
			}
		case tcell.KeyEnter:
			content := textArea.GetText()
			if strings.TrimSpace(content) == "" {
				return nil
			}
			textArea.SetText("", true)
			textArea.SetDisabled(true)

			switch strings.TrimSpace(content) {
			case "/help":
				listHelp(content)
				textArea.SetDisabled(false)
				return event
			case "/bye":
				quitApp()
				return event
			case "/debug":
				toggleDebugConsole(mainFlex)
				textArea.SetDisabled(false)
				return event
			case "/new":
				startNewConversation()
				textArea.SetDisabled(false)
				return event
			}

			send(content)
		}
		return event
	})
}

// send starts a turn: the user block is appended to the transcript right
// away, the assistant block arrives through onRender snapshots.
func send(content string) {
	transcript += fmt.Sprintf("[red::]You:[-]\n%s\n\n", content)
	pending = ""
	chatView.SetText(transcript)
	chatView.ScrollToEnd()

	manager.Send(content)
}

// onRender applies one RenderedMessage snapshot. Runs on the turn goroutine.
func onRender(entry conversation.Entry) {
	rendered := formatMessage(entry.Message)
	app.QueueUpdateDraw(func() {
		pending = rendered
		chatView.SetText(transcript + pending)
		chatView.ScrollToEnd()
	})
}

func finalizeTurn() {
	if pending == "" {
		return
	}
	transcript += pending + "\n"
	pending = ""
}

// formatMessage renders thoughts dimmed above the answer.
func formatMessage(msg stream.RenderedMessage) string {
	var b strings.Builder
	b.WriteString("[green::]Bot:[-]\n")
	for _, thought := range msg.Thoughts {
		fmt.Fprintf(&b, "[gray::d]%s[-:-:-]\n", thought)
	}
	b.WriteString(msg.Content)
	b.WriteString("\n")
	return b.String()
}

// refreshConversations re-fetches the summary list for the sidebar. Wired as
// the publisher's refresh collaborator.
func refreshConversations() error {
	conversations, err := client.ListConversations()
	if err != nil {
		return err
	}

	app.QueueUpdateDraw(func() {
		selected := manager.ConversationID()
		sidebar.Clear()
		sidebarIDs = sidebarIDs[:0]
		for _, c := range conversations {
			c := c
			sidebar.AddItem(listTitle(c), snippet(c.LastMessage), 0, func() {
				loadConversation(c.ID)
			})
			sidebarIDs = append(sidebarIDs, c.ID)
			if c.ID == selected {
				sidebar.SetCurrentItem(sidebar.GetItemCount() - 1)
			}
		}
	})
	return nil
}

// listTitle is the sidebar label: the conversation title, or a shortened id
// for untitled conversations.
func listTitle(c api.Conversation) string {
	if c.Title != "" {
		return c.Title
	}
	if len(c.ID) > 8 {
		return c.ID[:8]
	}
	return c.ID
}

func snippet(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runes := []rune(s); len(runes) > 40 {
		return string(runes[:40]) + "…"
	}
	return s
}

// loadConversation replays a stored conversation into the chat view.
func loadConversation(id string) {
	manager.Cancel()
	manager.SetConversation(id)

	// Cancel never fires OnTurnEnd for the superseded turn, so the input box
	// is re-enabled here.
	textArea.SetDisabled(false)

	go func() {
		messages, err := client.GetMessages(id)
		if err != nil {
			localLogger.Error("Failed to load conversation: ", err)
			return
		}

		var b strings.Builder
		for _, msg := range messages {
			if msg.Role == api.RoleUser {
				fmt.Fprintf(&b, "[red::]You:[-]\n%s\n\n", msg.Content)
				continue
			}
			b.WriteString("[green::]Bot:[-]\n")
			if msg.Metadata != nil {
				for _, thought := range msg.Metadata.Thoughts {
					fmt.Fprintf(&b, "[gray::d]%s[-:-:-]\n", thought)
				}
			}
			fmt.Fprintf(&b, "%s\n\n", msg.Content)
		}

		app.QueueUpdateDraw(func() {
			transcript = b.String()
			pending = ""
			chatView.SetText(transcript)
			chatView.ScrollToEnd()
			app.SetFocus(textArea)
		})
	}()
}

func startNewConversation() {
	manager.Cancel()
	manager.SetConversation("")
	textArea.SetDisabled(false)
	transcript = ""
	pending = ""
	chatView.SetText("")
	fmt.Fprintf(chatView, "Started a new conversation\n\n")
}

func deleteSelectedConversation() {
	index := sidebar.GetCurrentItem()
	if index < 0 || index >= len(sidebarIDs) {
		return
	}
	id := sidebarIDs[index]

	go func() {
		if err := client.DeleteConversation(id); err != nil {
			localLogger.Error("Failed to delete conversation: ", err)
			return
		}
		if manager.ConversationID() == id {
			app.QueueUpdateDraw(func() {
				startNewConversation()
			})
		}
		publisher.RequestRefresh()
	}()
}

func toggleDebugConsole(mainFlex *tview.Flex) {
	go func() {
		if !config.Dev {
			app.QueueUpdateDraw(func() {
				mainFlex.AddItem(debugConsole, 0, 1, true)
				fmt.Fprintf(chatView, "\nDebug console enabled\n")
			})
		} else {
			app.QueueUpdateDraw(func() {
				mainFlex.RemoveItem(debugConsole)
				fmt.Fprintf(chatView, "\nDebug console disabled\n")
			})
		}
	}()
}

func quitApp() {
	fmt.Fprintf(chatView, "Bye bye\n")

	manager.Cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		localLogger.Close()
		app.Stop()
		log.Println("Shutting down gracefully.")
	}()

	wg.Wait()
	os.Exit(0)
}

func listHelp(content string) {
	fmt.Fprintln(chatView, "[red::]You:[-]")
	fmt.Fprintf(chatView, "%s\n\n", content)

	fmt.Fprintf(chatView, "[green::]Bot:[-]\n")
	fmt.Fprintf(chatView, "Here are some commands you can use:\n")
	fmt.Fprintf(chatView, "- /help: Display this help message\n")
	fmt.Fprintf(chatView, "- /bye: Exit the application\n")
	fmt.Fprintf(chatView, "- /debug: Toggle the debug console\n")
	fmt.Fprintf(chatView, "- /new: Start a new conversation\n")
	fmt.Fprintf(chatView, "- press d on the sidebar to delete a conversation\n\n")
}

func GetDebugConsole() (*tview.TextView, error) {
	if debugConsole == nil {
		return nil, errors.New("debug console not initialized")
	}
	return debugConsole, nil
}
