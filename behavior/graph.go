package behavior

import "strings"

// Graphs lists the logical clip names a pet is expected to provide. Segmented
// graphs are played start, loop, end.
var Graphs = []string{
	"Default",
	"StartUp",
	"Shutdown",
	"Raised_Dynamic",
	"Raised_Static_A_Start",
	"Raised_Static_B_Loop",
	"Climb_Top_Right",
	"Climb_Top_Left",
	"Climb_Up_Right",
	"Climb_Up_Left",
	"Climb_Right_A_Start",
	"Climb_Right_B_Loop",
	"Climb_Left_A_Start",
	"Climb_Left_B_Loop",
	"Touch_Head_A_Start",
	"Touch_Head_B_Loop",
	"Touch_Head_C_End",
	"Touch_Body_A_Start",
	"Touch_Body_B_Loop",
	"Touch_Body_C_End",
	"Crawl_Right_A_Start",
	"Crawl_Right_B_Loop",
	"Crawl_Right_C_End",
	"Crawl_Left_A_Start",
	"Crawl_Left_B_Loop",
	"Crawl_Left_C_End",
	"Fall_Left_A_Start",
	"Fall_Left_B_Loop",
	"Fall_Left_C_End",
	"Fall_Right_A_Start",
	"Fall_Right_B_Loop",
	"Fall_Right_C_End",
	"Walk_Right_A_Start",
	"Walk_Right_B_Loop",
	"Walk_Right_C_End",
	"Walk_Left_A_Start",
	"Walk_Left_B_Loop",
	"Walk_Left_C_End",
	"Sleep_A_Start",
	"Sleep_B_Loop",
	"Sleep_C_End",
	"Boring_A_Start",
	"Boring_B_Loop",
	"Boring_C_End",
	"Squat_A_Start",
	"Squat_B_Loop",
	"Squat_C_End",
}

var segmentSuffixes = []string{"_Start", "_Loop", "_End"}

// GraphName turns a graph into the lowercase request name used for lookup:
// "Touch_Head_A_Start" becomes "touch_head_a".
func GraphName(graph string) string {
	for _, s := range segmentSuffixes {
		graph = strings.ReplaceAll(graph, s, "")
	}
	return strings.ToLower(graph)
}
