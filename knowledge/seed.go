package knowledge

// seedCategories returns the embedded campus knowledge base used when no
// external knowledge file is configured.
func seedCategories() []Category {
	return []Category{
		{
			Name: "校园设施",
			Items: []Item{
				{
					ID:       "lib01",
					Question: "图书馆几点开门？",
					Answer:   "图书馆开放时间为每天早8点到晚10点，节假日开放时间以馆内公告为准。",
					Keywords: []string{"图书馆", "开门", "开放时间", "闭馆"},
				},
				{
					ID:       "lib02",
					Question: "图书馆怎么借书？",
					Answer:   "凭校园卡在自助借还机或服务台办理，本科生最多可借10册，借期30天，可续借一次。",
					Keywords: []string{"图书馆", "借书", "续借", "校园卡"},
				},
				{
					ID:       "gym01",
					Question: "体育馆如何预约场地？",
					Answer:   "通过校园服务小程序预约，羽毛球和篮球场地可提前3天预约，凭预约码入场。",
					Keywords: []string{"体育馆", "预约", "场地", "羽毛球", "篮球"},
				},
				{
					ID:       "canteen01",
					Question: "食堂的营业时间是什么？",
					Answer:   "各食堂早餐6:30-9:00，午餐11:00-13:30，晚餐17:00-19:30，二食堂夜宵窗口营业至22:00。",
					Keywords: []string{"食堂", "营业时间", "吃饭", "夜宵"},
				},
			},
		},
		{
			Name: "教务管理",
			Items: []Item{
				{
					ID:       "course01",
					Question: "怎么选课和退课？",
					Answer:   "登录教务系统，在选课开放期内完成选课；开学前两周内可退课，逾期需辅导员审批。",
					Keywords: []string{"选课", "退课", "教务系统"},
				},
				{
					ID:       "course02",
					Question: "挂科了怎么办？",
					Answer:   "可在下学期初参加补考；补考未通过需重修该课程，重修报名在教务系统进行。",
					Keywords: []string{"挂科", "补考", "重修", "成绩"},
				},
				{
					ID:       "major01",
					Question: "转专业的流程是什么？",
					Answer:   "大一下学期提交转专业申请，通过接收学院的考核后，教务处统一公示办理。",
					Keywords: []string{"转专业", "申请", "流程"},
				},
			},
		},
		{
			Name: "学生事务",
			Items: []Item{
				{
					ID:       "scholar01",
					Question: "奖学金怎么申请？",
					Answer:   "每学年秋季学期开学一个月内，在学生服务平台提交申请，由学院评审后公示。",
					Keywords: []string{"奖学金", "申请", "评审"},
				},
				{
					ID:       "card01",
					Question: "校园卡丢了怎么挂失？",
					Answer:   "可在校园服务小程序上立即挂失，之后到卡务中心补办，补卡费20元。",
					Keywords: []string{"校园卡", "挂失", "补办"},
				},
				{
					ID:       "dorm01",
					Question: "宿舍晚归有什么规定？",
					Answer:   "宿舍楼23:00关门，晚归需在值班室登记；连续三次晚归将通报辅导员。",
					Keywords: []string{"宿舍", "晚归", "门禁"},
				},
				{
					ID:       "net01",
					Question: "校园WiFi怎么连接？",
					Answer:   "连接campus-net热线，用学号和统一身份认证密码登录即可，每人限3台设备。",
					Keywords: []string{"WiFi", "网络", "校园网", "上网"},
				},
			},
		},
	}
}
